package validate

import (
	"github.com/rotisserie/eris"
)

// Fold is one train/test split of site positions.
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits n positions into k contiguous, unshuffled test folds. The
// first n%k folds hold one extra position.
func KFold(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, eris.Errorf("validate: k-fold needs k >= 2, got %d", k)
	}
	if n < k {
		return nil, eris.Errorf("validate: cannot split %d sites into %d folds", n, k)
	}
	folds := make([]Fold, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		f := Fold{Test: make([]int, 0, size), Train: make([]int, 0, n-size)}
		for j := 0; j < n; j++ {
			if j >= start && j < start+size {
				f.Test = append(f.Test, j)
			} else {
				f.Train = append(f.Train, j)
			}
		}
		folds = append(folds, f)
		start += size
	}
	return folds, nil
}
