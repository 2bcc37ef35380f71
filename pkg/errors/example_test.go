package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.New(errors.ErrorTypeNotFound, "artifact not found").
		WithDetail("name", "vehicle_insurance_model_output_v0.0.1")

	fmt.Println(err.Error())

	// Output:
	// not_found: artifact not found
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.EOF, errors.ErrorTypeFile, "failed to read training data").
		WithDetail("file", "train.csv")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("file error")
	}
	fmt.Println(err.Unwrap() == io.EOF)

	// Output:
	// file error
	// true
}

// ExampleHasType shows type checks through nested structured errors.
func ExampleHasType() {
	inner := errors.New(errors.ErrorTypeTransform, "unknown category")
	outer := errors.Wrap(inner, errors.ErrorTypeInternal, "predict failed")

	fmt.Println(errors.IsType(outer, errors.ErrorTypeTransform))
	fmt.Println(errors.HasType(outer, errors.ErrorTypeTransform))

	// Output:
	// false
	// true
}
