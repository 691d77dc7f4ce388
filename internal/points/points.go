// Package points turns logged minutes into the dashboard's incentive score.
package points

// Max is the score of a day with less than an hour logged.
const Max = 10

// Calc returns the points earned for a day with the given minutes logged:
// one point is lost per full hour, floored at zero.
func Calc(minutes int) int {
	if minutes < 0 {
		minutes = 0
	}
	hours := minutes / 60
	if hours >= Max {
		return 0
	}
	return Max - hours
}

// Sum adds up Calc for every value. Zero-minute days still count.
func Sum(minutes ...int) int {
	total := 0
	for _, m := range minutes {
		total += Calc(m)
	}
	return total
}
