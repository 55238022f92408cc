package storage

import (
	"errors"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	once   sync.Once
	logger *zap.Logger
)

func getTestLogger() *zap.Logger {
	once.Do(func() {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
	})

	return logger
}

func TestMemory_NotBegun(t *testing.T) {
	m := NewMemory()
	require.EqualValues(t, 0, m.Size())

	_, err := m.GetByte(0)
	require.ErrorIs(t, err, ErrNotBegun)
	require.ErrorIs(t, m.PutByte(0, 1), ErrNotBegun)
	require.ErrorIs(t, m.Commit(), ErrNotBegun)
	require.ErrorIs(t, m.Begin(0), ErrInvalidSize)
}

func TestMemory_ReadWrite(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Begin(16))
	require.EqualValues(t, 16, m.Size())

	b, err := m.GetByte(15)
	require.NoError(t, err)
	require.EqualValues(t, ErasedByte, b)

	require.NoError(t, m.PutByte(3, 0x42))
	b, err = m.GetByte(3)
	require.NoError(t, err)
	require.EqualValues(t, 0x42, b)

	n, err := m.WriteAt([]byte{1, 2, 3}, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	p := make([]byte, 4)
	_, err = m.ReadAt(p, 9)
	require.NoError(t, err)
	require.Equal(t, []byte{ErasedByte, 1, 2, 3}, p)

	_, err = m.ReadAt(p, 13)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = m.WriteAt(p, -1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = m.GetByte(16)
	require.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, m.Commit())
	require.EqualValues(t, 1, m.Commits())
}

func TestMemory_BeginKeepsContents(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Begin(4))
	require.NoError(t, m.PutByte(0, 7))

	require.NoError(t, m.Begin(2))
	require.EqualValues(t, 4, m.Size())

	require.NoError(t, m.Begin(8))
	require.EqualValues(t, 8, m.Size())
	require.Equal(t, []byte{7, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, m.Bytes())
}

func TestErase(t *testing.T) {
	m := NewMemory()
	require.ErrorIs(t, Erase(m), ErrNotBegun)

	require.NoError(t, m.Begin(4))
	_, err := m.WriteAt([]byte{0, 1, 2, 3}, 0)
	require.NoError(t, err)

	require.NoError(t, Erase(m))
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, m.Bytes())
	require.EqualValues(t, 1, m.Commits())
}

func TestCommitChain(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Begin(4))

	var order []string
	first := func(next CommitHandler) CommitHandler {
		return CommitHandlerFunc(func(store Storager) error {
			order = append(order, "first")
			return next.Commit(store)
		})
	}
	second := func(next CommitHandler) CommitHandler {
		return CommitHandlerFunc(func(store Storager) error {
			order = append(order, "second")
			return next.Commit(store)
		})
	}

	unit := NewLogUnit(getTestLogger())
	store := Chain(m, NewCommitChain(unit.CommitMiddleware, first, second))
	require.NoError(t, store.PutByte(0, 1))
	require.NoError(t, store.Commit())

	require.Equal(t, []string{"first", "second"}, order)
	require.EqualValues(t, 1, m.Commits())
	require.EqualValues(t, 1, unit.Commits())
	require.EqualValues(t, 0, unit.Failures())
	log.Println(unit)
}

func TestCommitChain_Failure(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Begin(4))

	errFlash := errors.New("flash write failed")
	fail := func(next CommitHandler) CommitHandler {
		return CommitHandlerFunc(func(store Storager) error {
			return errFlash
		})
	}

	unit := NewLogUnit(getTestLogger())
	store := Chain(m, NewCommitChain(unit.CommitMiddleware).Attach(fail))
	require.ErrorIs(t, store.Commit(), errFlash)
	require.EqualValues(t, 0, m.Commits())
	require.EqualValues(t, 1, unit.Failures())
}

func TestChain_Empty(t *testing.T) {
	m := NewMemory()
	require.Same(t, m, Chain(m, nil))
	require.Same(t, m, Chain(m, NewCommitChain()))
}
