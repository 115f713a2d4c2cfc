package timectx

import (
	"fmt"
	"strings"
	"time"
)

// Config controls how the spoken time context line is rendered.
type Config struct {
	Enabled    bool
	TimeZone   string
	Location   string
	IncludeISO bool
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

var weekdays = map[time.Weekday]string{
	time.Monday:    "Monday",
	time.Tuesday:   "Tuesday",
	time.Wednesday: "Wednesday",
	time.Thursday:  "Thursday",
	time.Friday:    "Friday",
	time.Saturday:  "Saturday",
	time.Sunday:    "Sunday",
}

var months = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var ordinals = map[int]string{
	1: "first", 2: "second", 3: "third", 4: "fourth", 5: "fifth",
	6: "sixth", 7: "seventh", 8: "eighth", 9: "ninth", 10: "tenth",
	11: "eleventh", 12: "twelfth", 13: "thirteenth", 14: "fourteenth",
	15: "fifteenth", 16: "sixteenth", 17: "seventeenth", 18: "eighteenth",
	19: "nineteenth", 20: "twentieth", 21: "twenty-first",
	22: "twenty-second", 23: "twenty-third", 24: "twenty-fourth",
	25: "twenty-fifth", 26: "twenty-sixth", 27: "twenty-seventh",
	28: "twenty-eighth", 29: "twenty-ninth", 30: "thirtieth",
	31: "thirty-first",
}

var units = [...]string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen",
}

var tens = [...]string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}

// NumberToWords renders n in English prose. Values of 10000 and above fall
// back to digits.
func NumberToWords(n int) string {
	if n < 0 {
		return "minus " + NumberToWords(-n)
	}
	switch {
	case n < 20:
		return units[n]
	case n < 100:
		if rem := n % 10; rem != 0 {
			return tens[n/10] + "-" + units[rem]
		}
		return tens[n/10]
	case n < 1000:
		head := units[n/100] + " hundred"
		if rem := n % 100; rem != 0 {
			return head + " " + NumberToWords(rem)
		}
		return head
	case n < 10000:
		head := units[n/1000] + " thousand"
		if rem := n % 1000; rem != 0 {
			return head + " " + NumberToWords(rem)
		}
		return head
	default:
		return fmt.Sprintf("%d", n)
	}
}

func yearToWords(y int) string {
	if y >= 2000 && y <= 2099 {
		rem := y - 2000
		if rem == 0 {
			return "two thousand"
		}
		return "two thousand " + NumberToWords(rem)
	}
	return NumberToWords(y)
}

func minuteToWords(m int) string {
	switch {
	case m == 0:
		return "o'clock"
	case m < 10:
		return "oh " + NumberToWords(m)
	default:
		return NumberToWords(m)
	}
}

func timeToWords(t time.Time) string {
	hour, minute := t.Hour(), t.Minute()
	ampm := "a.m."
	if hour >= 12 {
		ampm = "p.m."
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	if minute == 0 {
		return fmt.Sprintf("%s o'clock %s", NumberToWords(h12), ampm)
	}
	return fmt.Sprintf("%s %s %s", NumberToWords(h12), minuteToWords(minute), ampm)
}

func offsetWords(t time.Time) string {
	_, offset := t.Zone()
	totalMin := offset / 60
	if totalMin == 0 {
		return "UTC plus zero"
	}
	sign := "plus"
	if totalMin < 0 {
		sign = "minus"
		totalMin = -totalMin
	}
	hh, mm := totalMin/60, totalMin%60
	if mm == 0 {
		return fmt.Sprintf("UTC %s %s", sign, NumberToWords(hh))
	}
	return fmt.Sprintf("UTC %s %s hours %s minutes", sign, NumberToWords(hh), NumberToWords(mm))
}

// Line renders the full spoken time context, or "" when disabled.
func Line(cfg Config, now Clock) string {
	if !cfg.Enabled {
		return ""
	}
	if now == nil {
		now = time.Now
	}
	t := now()
	if loc, err := time.LoadLocation(cfg.TimeZone); err == nil && cfg.TimeZone != "" {
		t = t.In(loc)
	}

	dayOrd, ok := ordinals[t.Day()]
	if !ok {
		dayOrd = NumberToWords(t.Day())
	}

	base := fmt.Sprintf(
		"Location is %s. Time zone is %s, %s. Now is %s, %s %s, %s, %s.",
		cfg.Location, cfg.TimeZone, offsetWords(t),
		weekdays[t.Weekday()], months[t.Month()-1], dayOrd,
		yearToWords(t.Year()), timeToWords(t),
	)
	if cfg.IncludeISO {
		base += " ISO_8601=" + t.Format(time.RFC3339) + "."
	}
	return strings.TrimSpace(base)
}

// Append suffixes prompt with the rendered time context when enabled.
func Append(prompt string, cfg Config, now Clock) string {
	tc := Line(cfg, now)
	p := strings.TrimSpace(prompt)
	if tc == "" {
		return p
	}
	return strings.TrimSpace(p + "\n\nTIME CONTEXT: " + tc)
}
