package classify

// GenreLabels is the fixed genre table in the order the classifier emits
// probabilities. Position matters: index i of the model output is the
// probability of GenreLabels[i].
var GenreLabels = []string{
	"Blues",
	"Classical",
	"Country",
	"Easy Listening",
	"Electronic",
	"Experimental",
	"Folk",
	"Hip-Hop",
	"Instrumental",
	"International",
	"Jazz",
	"Old-Time / Historic",
	"Pop",
	"Rock",
	"Soul-RnB",
	"Spoken",
}

// NumGenres is the size of the genre label table
const NumGenres = 16

// IsValidGenre reports whether the label is part of the genre table
func IsValidGenre(label string) bool {
	for _, g := range GenreLabels {
		if g == label {
			return true
		}
	}
	return false
}
