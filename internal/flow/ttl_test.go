package flow

import "time"

func (s *UnitTestSuite) TestTTLCache() {
	c := NewTTL[string, string]()
	c.Set("key1", "value1", 200*time.Millisecond)
	v, ok := c.Get("key1")
	s.True(ok)
	s.Equal("value1", v)

	time.Sleep(250 * time.Millisecond)
	v, ok = c.Get("key1")
	s.False(ok)
	s.Equal("", v)
}

func (s *UnitTestSuite) TestTTLPurge() {
	now := time.Now()
	SetTimNowFn(func() time.Time { return now })
	defer RestoreTimeNow()

	c := NewTTL[string, int]()
	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	s.Equal(2, c.Len())

	now = now.Add(time.Minute)
	s.Equal(1, c.Purge())
	s.Equal(1, c.Len())
	v, ok := c.Get("long")
	s.True(ok)
	s.Equal(2, v)
}
