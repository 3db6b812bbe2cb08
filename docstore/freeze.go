package docstore

import (
	"fmt"

	"go.uber.org/zap"

	"pkbuild/archive"
)

// Freeze packs every docSet into archive keyed by docSet id.
func (s *Store) Freeze() (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[string][]byte, len(s.docSets))
	for _, ds := range s.docSets {
		data, err := archive.Pack(ds)
		if err != nil {
			return nil, fmt.Errorf("unable to freeze docSet %s: %w", ds.ID, err)
		}
		res[ds.ID] = data
	}
	return res, nil
}

// Thaw restores store from frozen docSet archives.
func Thaw(log *zap.Logger, frozen ...[]byte) (*Store, error) {
	s := New(log)
	for _, data := range frozen {
		ds := &DocSet{}
		if err := archive.Unpack(data, ds); err != nil {
			return nil, fmt.Errorf("unable to thaw docSet: %w", err)
		}
		for _, existing := range s.docSets {
			if existing.ID == ds.ID {
				return nil, fmt.Errorf("unable to thaw docSet: duplicate docSet %s", ds.ID)
			}
		}
		s.docSets = append(s.docSets, ds)
	}
	return s, nil
}
