package model

import (
	"math"
	"math/rand"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
)

// TrainTestSplit shuffles n row indices with a seeded source and splits off
// ceil(n*testSize) of them as the test set.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.New(errors.ErrorTypeConfig, "test size must be in (0, 1)").
			WithDetail("test_size", testSize)
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest == 0 || nTest >= n {
		return nil, nil, errors.Newf(errors.ErrorTypeData, "cannot split %d rows with test size %v", n, testSize)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
