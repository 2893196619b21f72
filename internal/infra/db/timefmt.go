package db

import "time"

// TimeFormat: фиксированная ширина, чтобы строки в SQLite сравнивались
// лексикографически так же, как сами моменты времени.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func FormatTime(t time.Time) string { return t.UTC().Format(TimeFormat) }

func ParseTime(s string) (time.Time, error) { return time.Parse(TimeFormat, s) }
