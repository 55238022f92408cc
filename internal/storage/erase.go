package storage

// Erase sets every cell of the reserved region to ErasedByte and commits.
// The next layout check sees a version mismatch and re-initializes.
func Erase(store Storager) error {
	size := store.Size()
	if size == 0 {
		return ErrNotBegun
	}
	if _, err := store.WriteAt(erased(size), 0); err != nil {
		return err
	}
	return store.Commit()
}
