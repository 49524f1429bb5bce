package sessions

import "fmt"

const (
	// maxOccupancy keeps live sessions below 1/maxOccupancy of the code space
	maxOccupancy = 4
	maxCodeWidth = 18
)

// codeWidth returns the number of digits needed so that live sessions use at
// most a quarter of the code space, never fewer than minWidth.
func codeWidth(live, minWidth int) int {
	width := minWidth
	for width < maxCodeWidth && codeSpace(width) < (live+1)*maxOccupancy {
		width++
	}
	return width
}

func codeSpace(width int) int {
	space := 1
	for i := 0; i < width; i++ {
		space *= 10
	}
	return space
}

func formatCode(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}
