package presence

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mustClock(t *testing.T, s string) ClockTime {
	t.Helper()
	c, err := ParseClockTime(s)
	if err != nil {
		t.Fatalf("ParseClockTime(%q) error = %v", s, err)
	}
	return c
}

func TestSecondsSinceMidnight(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   ClockTime
		want int
	}{
		{ClockTime{0, 2, 0}, 120},
		{ClockTime{0, 0, 0}, 0},
		{ClockTime{9, 39, 5}, 34745},
		{ClockTime{23, 59, 59}, 86399},
	}
	for _, tt := range tests {
		if got := SecondsSinceMidnight(tt.in); got != tt.want {
			t.Errorf("SecondsSinceMidnight(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInterval(t *testing.T) {
	t.Parallel()
	midnight := ClockTime{}
	if got := Interval(midnight, ClockTime{Minute: 1}); got != 60 {
		t.Errorf("Interval(00:00:00, 00:01:00) = %d, want 60", got)
	}
	if got := Interval(midnight, midnight); got != 0 {
		t.Errorf("Interval(t, t) = %d, want 0", got)
	}
	noon := ClockTime{Hour: 12}
	if got := Interval(noon, ClockTime{Hour: 11}); got != -3600 {
		t.Errorf("Interval(12:00:00, 11:00:00) = %d, want -3600", got)
	}
}

func TestParseClockTime_ExactLayout(t *testing.T) {
	t.Parallel()
	for _, bad := range []string{"9:00", "09:00", "24:00:00", "09:60:00", "", "09:00:00 "} {
		if _, err := ParseClockTime(bad); err == nil {
			t.Errorf("ParseClockTime(%q) expected error", bad)
		}
	}
	if got := mustClock(t, "17:59:52"); got != (ClockTime{17, 59, 52}) {
		t.Errorf("ParseClockTime(17:59:52) = %+v", got)
	}
}

func TestDateWeekday(t *testing.T) {
	t.Parallel()
	start := Date{Year: 2013, Month: time.September, Day: 9} // Monday
	for i := 0; i < 7; i++ {
		d := DateOf(start.Time(time.UTC).AddDate(0, 0, i))
		if got := d.Weekday(); got != i {
			t.Errorf("%s.Weekday() = %d, want %d", d, got, i)
		}
	}
}

func TestParseFile_Fixture(t *testing.T) {
	t.Parallel()
	idx, err := ParseFile(filepath.Join("testdata", "presence.csv"), ',')
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	ids := idx.UserIDs()
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Fatalf("UserIDs() = %v, want [10 11]", ids)
	}

	sample := Date{Year: 2013, Month: time.September, Day: 10}
	rec, ok := idx[10][sample]
	if !ok {
		t.Fatalf("missing record for user 10 on %s", sample)
	}
	if rec.Start != (ClockTime{9, 39, 5}) {
		t.Errorf("Start = %s, want 09:39:05", rec.Start)
	}
	if rec.End != (ClockTime{17, 59, 52}) {
		t.Errorf("End = %s, want 17:59:52", rec.End)
	}

	if got := len(idx[11]); got != 5 {
		t.Errorf("len(idx[11]) = %d, want 5", got)
	}
}

func TestParse_LastWriteWins(t *testing.T) {
	t.Parallel()
	src := "1,2014-02-03,08:00:00,16:00:00\n1,2014-02-03,09:00:00,17:00:00\n"
	idx, err := Parse(strings.NewReader(src), ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rec := idx[1][Date{2014, time.February, 3}]
	if rec.Start != (ClockTime{Hour: 9}) || rec.End != (ClockTime{Hour: 17}) {
		t.Errorf("record = %+v, want the later row", rec)
	}
}

func TestParse_RowsAfterQuotingErrorSurvive(t *testing.T) {
	t.Parallel()
	src := strings.Join([]string{
		"user_id,date,start,end",
		`12,2013"09-10,09:00:00,10:00:00`,
		"14,2013-09-10,09:00:00,10:00:00",
		`15,2013-09-10,09:00:00,10:00"00`,
		"16,2013-09-11,08:00:00,16:00:00",
	}, "\n") + "\n"

	idx, err := Parse(strings.NewReader(src), ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ids := idx.UserIDs()
	if len(ids) != 2 || ids[0] != 14 || ids[1] != 16 {
		t.Fatalf("UserIDs() = %v, want [14 16]", ids)
	}
	rec := idx[16][Date{2013, time.September, 11}]
	if rec.Start != (ClockTime{Hour: 8}) || rec.End != (ClockTime{Hour: 16}) {
		t.Errorf("user 16 record = %+v", rec)
	}
}

func TestParse_CustomDelimiter(t *testing.T) {
	t.Parallel()
	src := "user_id;date;start;end\n7;2014-02-03;08:00:00;16:00:00\n"
	idx, err := Parse(strings.NewReader(src), ';')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := idx[7]; !ok || len(idx) != 1 {
		t.Errorf("Parse() = %v, want only user 7", idx)
	}
}

func TestParse_EmptySource(t *testing.T) {
	t.Parallel()
	idx, err := Parse(strings.NewReader(""), ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if idx == nil || len(idx) != 0 {
		t.Errorf("Parse() = %v, want empty non-nil index", idx)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParse_ReadErrorPropagates(t *testing.T) {
	t.Parallel()
	if _, err := Parse(failingReader{}, ','); err == nil {
		t.Fatal("expected read error to propagate")
	}
}

func TestParseFile_Missing(t *testing.T) {
	t.Parallel()
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.csv"), ',')
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ParseFile() error = %v, want fs.ErrNotExist", err)
	}
}

func TestUserPresenceDates_Sorted(t *testing.T) {
	t.Parallel()
	p := UserPresence{
		{2014, time.January, 6}:    {},
		{2013, time.September, 12}: {},
		{2013, time.September, 10}: {},
		{2013, time.December, 1}:   {},
	}
	got := p.Dates()
	want := []Date{
		{2013, time.September, 10},
		{2013, time.September, 12},
		{2013, time.December, 1},
		{2014, time.January, 6},
	}
	if len(got) != len(want) {
		t.Fatalf("Dates() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dates()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
