package playlist

// Window returns the [from, to) range of at most 2*half+1 items centered on
// current. Near the ends the range is shifted rather than shrunk.
func Window(length, current, half int) (from, to int) {
	if length <= 0 {
		return 0, 0
	}
	half = max(half, 0)
	current = min(max(current, 0), length-1)

	from = current - half
	to = current + half + 1
	if from < 0 {
		to -= from
		from = 0
	}
	if to > length {
		from -= to - length
		to = length
	}
	return max(from, 0), to
}
