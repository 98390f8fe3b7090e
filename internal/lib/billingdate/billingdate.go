// Package billingdate считает даты ежемесячного биллинга подписок.
//
// Все даты отсчитываются от даты начала подписки, а не от предыдущей даты
// списания, поэтому подписка от 31 января списывается 29 февраля, 31 марта и т.д.
package billingdate

import "time"

// AddMonths прибавляет n месяцев к t. Если в целевом месяце нет такого дня,
// дата прижимается к последнему дню месяца.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first.Month(), first.Year())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// CyclesElapsed возвращает количество полных месячных циклов от start до t.
// Для t раньше start возвращает 0.
func CyclesElapsed(start, t time.Time) int {
	if !t.After(start) {
		return 0
	}
	months := (t.Year()-start.Year())*12 + int(t.Month()) - int(start.Month())
	if AddMonths(start, months).After(t) {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// Next возвращает первую дату списания строго после t.
func Next(start, t time.Time) time.Time {
	if t.Before(start) {
		return AddMonths(start, 1)
	}
	return AddMonths(start, CyclesElapsed(start, t)+1)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
