package order

import (
	"fmt"
	"regexp"
	"time"
)

const orderNumberPrefix = "ORD"

// OrderNumberPattern matches generated order numbers: prefix, creation time in unix
// milliseconds and a 0-999 suffix.
var OrderNumberPattern = regexp.MustCompile(`^ORD-\d+-\d{1,3}$`)

// orderNumber is not retried on collision; the unique index rejects duplicates.
func (s *Service) orderNumber(at time.Time) string {
	return fmt.Sprintf("%s-%d-%d", orderNumberPrefix, at.UnixMilli(), s.randN(orderNumberRange))
}
