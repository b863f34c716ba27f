package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultFormat(t *testing.T) {
	rq := require.New(t)

	d, err := Parse(DefaultFormat, "2024-03-09")
	rq.NoError(err)
	rq.Equal(New(2024, time.March, 9), d)

	_, err = Parse(DefaultFormat, "2024-03-09T10:00:00")
	rq.Error(err)

	rq.Equal("2024-03-09", d.String())
}

func TestDateComparisons(t *testing.T) {
	rq := require.New(t)

	d1 := New(2024, time.March, 9)
	d2 := New(2024, time.March, 10)
	rq.True(d1.Before(d2))
	rq.True(d2.After(d1))
	rq.True(d1.Equal(New(2024, time.March, 9)))
	rq.False(d1.Equal(d2))
}

func TestAddDays(t *testing.T) {
	rq := require.New(t)

	d := New(2024, time.February, 28)
	// 2024 is a leap year.
	rq.Equal(New(2024, time.February, 29), d.AddDays(1))
	rq.Equal(New(2024, time.March, 1), d.AddDays(2))
	rq.Equal(New(2024, time.February, 27), d.AddDays(-1))
}

func TestAddMonths(t *testing.T) {
	rq := require.New(t)

	d := New(2024, time.April, 9)
	rq.Equal(New(2024, time.June, 9), d.AddMonths(2))
	rq.Equal(New(2024, time.February, 9), d.AddMonths(-2))

	// Year boundary.
	rq.Equal(New(2025, time.January, 15), New(2024, time.November, 15).AddMonths(2))
	rq.Equal(New(2023, time.December, 15), New(2024, time.January, 15).AddMonths(-1))

	// Overflowed days normalize per time.AddDate.
	rq.Equal(New(2024, time.March, 2), New(2024, time.January, 31).AddMonths(1))
}

func TestQuarter(t *testing.T) {
	rq := require.New(t)

	rq.Equal(1, New(2024, time.January, 1).Quarter())
	rq.Equal(1, New(2024, time.March, 31).Quarter())
	rq.Equal(2, New(2024, time.April, 1).Quarter())
	rq.Equal(3, New(2024, time.September, 30).Quarter())
	rq.Equal(4, New(2024, time.December, 31).Quarter())
}

func TestTodayOverrideForTest(t *testing.T) {
	rq := require.New(t)

	fixed := New(2024, time.June, 1)
	TodaysDateForTest = fixed
	defer func() { TodaysDateForTest = Date{} }()
	rq.Equal(fixed, Today())
}
