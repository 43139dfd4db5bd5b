//go:build !windows

package wmi

import (
	"context"
	"errors"
	"fmt"
)

var query = func(context.Context) ([]record, error) {
	return nil, fmt.Errorf("wmi: %w", errors.ErrUnsupported)
}
