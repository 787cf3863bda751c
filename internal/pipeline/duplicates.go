package pipeline

import "github.com/carelane/medcheck/internal/model"

// DuplicateMap records, per validation run, which primary keys repeat. The
// first-seen occurrence of a key is the original; every later occurrence is a
// duplicate of it. Keys are not persisted across runs.
type DuplicateMap struct {
	// repeats maps a duplicated key to itself exactly when at least one
	// later record repeated the first occurrence.
	repeats map[string]bool
	// firstIndex maps each key to the index of its first occurrence.
	firstIndex map[string]int
}

// FindDuplicates scans records in order, O(n) single pass. Records with an
// empty primary key are skipped entirely: they are duplicates of nothing.
func FindDuplicates(records []model.Record) DuplicateMap {
	dm := DuplicateMap{
		repeats:    make(map[string]bool),
		firstIndex: make(map[string]int),
	}
	for i, rec := range records {
		key := rec.Key()
		if key == "" {
			continue
		}
		if _, seen := dm.firstIndex[key]; seen {
			dm.repeats[key] = true
			continue
		}
		dm.firstIndex[key] = i
	}
	return dm
}

// OriginalOf returns the key of the first occurrence when the record at
// index i is a later repeat of it, or "" when the record is not a duplicate.
// The first occurrence of a key is never a duplicate of itself.
func (dm DuplicateMap) OriginalOf(i int, rec model.Record) string {
	key := rec.Key()
	if key == "" || !dm.repeats[key] {
		return ""
	}
	if first, ok := dm.firstIndex[key]; ok && first == i {
		return ""
	}
	return key
}

// Override applies the duplicate status rule to a result: duplicates are at
// least warning, but an invalid verdict is never downgraded.
func (dm DuplicateMap) Override(i int, rec model.Record, res *model.ValidationResult) {
	original := dm.OriginalOf(i, rec)
	if original == "" {
		return
	}
	res.DuplicateOf = original
	if res.Status == model.StatusValid {
		res.Status = model.StatusWarning
	}
}
