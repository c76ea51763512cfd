package recognition

// Prompt builds the instruction given to text-only vision backends.
func Prompt(o Orientation) string {
	layout := "The text is written horizontally, left to right."
	if o == Vertical {
		layout = "The text is written vertically, top to bottom, with columns ordered right to left."
	}

	return "You are reading a small screenshot of Japanese text. " + layout +
		" List every Japanese word you can read in reading order, one word per line." +
		" Do not translate, do not add readings, numbering or any commentary." +
		" If there is no legible text, answer with an empty message."
}
