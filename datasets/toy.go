package datasets

// Sentences and labels for the toy run. The test sentences mix English and
// Hindi, so only a multilingual encoder is expected to get them right.
var (
	toyTrainTexts = []string{
		"This framework generates embeddings for each input sentence",
		"Sentences are passed as a list of string.",
		"The quick brown fox jumps over the lazy dog.",
		"The lazy dog is also jumping.",
		"The fox and the dog are playing.",
	}
	toyTrainLabels = []int{0, 0, 1, 1, 1}

	toyTestTexts = []string{
		"The sentence is used here has good embeddings.",
		"The boy is playing with the dog and jumping in joy.",
		"यहाँ वाक्य का इस्तेमाल किया गया है जिसमें अच्छी एम्बेडिंग है।",
		"डॉग्स के साथ खेलता लड़का और खुशी से उछलता।",
	}
	toyTestLabels = []int{0, 1, 0, 1}
)

// Toy returns the inline training and test examples.
func Toy() (train, test []Example) {
	return toyExamples(toyTrainTexts, toyTrainLabels), toyExamples(toyTestTexts, toyTestLabels)
}

func toyExamples(texts []string, labels []int) []Example {
	out := make([]Example, len(texts))
	for i := range texts {
		out[i] = Example{Text: texts[i], Label: labels[i]}
	}
	return out
}

// Unzip returns the texts and labels of examples.
func Unzip(examples []Example) ([]string, []int) {
	texts := make([]string, len(examples))
	labels := make([]int, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
		labels[i] = ex.Label
	}
	return texts, labels
}
