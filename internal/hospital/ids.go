package hospital

import (
	"fmt"
	"strconv"
	"strings"
)

// nextSeqID returns prefix plus one more than the largest numeric suffix
// among existing ids, zero padded to three digits. Removed ids are never
// reused while a larger one exists.
func nextSeqID(prefix string, existing []string) string {
	max := 0
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(id[len(prefix):])
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, max+1)
}

// invoiceNumber derives the printed number from the last six digits of id.
func invoiceNumber(id int64) string {
	s := strconv.FormatInt(id, 10)
	if len(s) > 6 {
		s = s[len(s)-6:]
	}
	return "INV-" + s
}

// nextStampID issues millisecond timestamps as record ids, bumping past the
// last issued value so two records created in the same millisecond differ.
// Callers hold the store lock.
func (s *Store) nextStampID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}
