package flow

func (s *UnitTestSuite) TestEvalAny() {
	obj := map[string]any{
		"key1": "value1",
		"key2": map[string]any{
			"subkey1": "subvalue1",
			"subkey2": 42,
		},
		"key3": []any{"elem1", "elem2", "elem3"},
		"key4": nil,
	}

	v, err := EvalAny("key1", obj)
	s.NoError(err)
	s.Equal("value1", v.(string))

	v, err = EvalAny("key2.subkey2", obj)
	s.NoError(err)
	s.Equal(42, v.(int))

	v, err = EvalAny("key3[1]", obj)
	s.NoError(err)
	s.Equal("elem2", v.(string))

	v, err = EvalAny("nonexistent", obj)
	s.NoError(err)
	s.Nil(v)

	v, err = EvalAny("contains(key3, 'elem2')", obj)
	s.NoError(err)
	s.Equal(true, v.(bool))

	_, err = EvalAny("key1 ==", obj)
	s.Error(err)
}

func (s *UnitTestSuite) TestMatchParameters() {
	params := map[string]any{"tier": "gold", "tags": []any{"a", "b"}}
	s.True(MatchParameters("", params))
	s.True(MatchParameters("tier == 'gold'", params))
	s.True(MatchParameters("contains(tags, 'b')", params))
	s.False(MatchParameters("contains(tags, 'c')", params))
	s.False(MatchParameters("tier ==", params))
	s.True(MatchParameters("!contains(keys(@), 'tier')", nil))
}

func (s *UnitTestSuite) TestCompiledExpressionsAreCached() {
	_, err := EvalAny("cached.expression", nil)
	s.NoError(err)
	_, ok := exprCache.Get("cached.expression")
	s.True(ok)
}
