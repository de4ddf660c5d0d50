package datasets

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices into train and test sets so that
// every class keeps roughly its share in both. Each class with at least two
// rows contributes at least one row to each side; singleton classes go to
// train. Both returned slices are shuffled.
func StratifiedSplit(labels []int, testFraction float64, seed int64) (train, test []int, err error) {
	if len(labels) == 0 {
		return nil, nil, fmt.Errorf("%w: nothing to split", ErrInvalidData)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("%w: test fraction %v must be in (0, 1)", ErrInvalidData, testFraction)
	}

	rng := rand.New(rand.NewSource(seed))

	byClass := make(map[int][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	// map iteration order is random; the split must only depend on seed
	sort.Ints(classes)

	for _, c := range classes {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

		nTest := int(math.Round(testFraction * float64(len(rows))))
		if len(rows) >= 2 {
			nTest = max(1, min(nTest, len(rows)-1))
		} else {
			nTest = 0
		}
		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}
