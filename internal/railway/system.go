package railway

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/foxhollow/trackvault/internal/blockfile"
	"github.com/foxhollow/trackvault/internal/bptree"
	"github.com/foxhollow/trackvault/internal/container"
	"github.com/foxhollow/trackvault/internal/heap"
	"github.com/foxhollow/trackvault/internal/types"
)

// Engine wires every storage-core component into one ticketing backend.
// It is a library, not a CLI: a command dispatcher would sit on top of
// this.
type Engine struct {
	dir string

	users    *container.HashMapFile[uint64, UserRecord]
	trainIDs *container.VectorFile[types.TrainID]

	trainsState  *bptree.BTree[uint64, TrainState]
	stationsMap  *bptree.BTree[StationKey, TrainLite]
	pendingQueue *bptree.BTree[PendingKey, int64]
	userOrders   *bptree.BTree[UserOrderKey, int64]

	trainsHeap *heap.Heap[TrainRecord]
	seatsHeap  *heap.Heap[SeatMatrix]
	ordersHeap *heap.Heap[OrderRecord]

	trainsFile, seatsFile, ordersFile *blockfile.File

	loginUsers map[uint64]struct{}

	log *zap.Logger
}

// Open opens (or creates) an Engine rooted at dir, wiring every tree, heap
// and container to its own file inside dir.
func Open(dir string) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	e := &Engine{dir: dir, loginUsers: map[uint64]struct{}{}, log: logger}

	e.users, err = container.OpenHashMapFile[uint64, UserRecord](
		filepath.Join(dir, "users.dat"), types.Uint64Codec{}, UserRecordCodec{}, 0)
	if err != nil {
		e.log.Error("open users container failed", zap.String("dir", dir), zap.Error(err))
		return nil, err
	}
	e.trainIDs, err = container.OpenVectorFile[types.TrainID](
		filepath.Join(dir, "trainids.dat"), types.TrainIDCodec{}, 0)
	if err != nil {
		e.log.Error("open train-id vector failed", zap.String("dir", dir), zap.Error(err))
		return nil, err
	}

	e.trainsState, err = bptree.Open[uint64, TrainState](
		filepath.Join(dir, "trains_state.idx"), types.Uint64Codec{}, TrainStateCodec{},
		func(a, b uint64) bool { return a < b }, bptree.DefaultConfig())
	if err != nil {
		e.log.Error("open trains_state index failed", zap.Error(err))
		return nil, err
	}
	e.stationsMap, err = bptree.Open[StationKey, TrainLite](
		filepath.Join(dir, "stations.idx"), StationKeyCodec{}, TrainLiteCodec{},
		stationKeyLess, bptree.DefaultConfig())
	if err != nil {
		e.log.Error("open stations index failed", zap.Error(err))
		return nil, err
	}
	e.pendingQueue, err = bptree.Open[PendingKey, int64](
		filepath.Join(dir, "pending.idx"), PendingKeyCodec{}, types.Int64Codec{},
		pendingKeyLess, bptree.DefaultConfig())
	if err != nil {
		e.log.Error("open pending-queue index failed", zap.Error(err))
		return nil, err
	}
	e.userOrders, err = bptree.Open[UserOrderKey, int64](
		filepath.Join(dir, "user_orders.idx"), UserOrderKeyCodec{}, types.Int64Codec{},
		userOrderKeyLess, bptree.DefaultConfig())
	if err != nil {
		e.log.Error("open user-orders index failed", zap.Error(err))
		return nil, err
	}

	trainsBF, trainsH, err := openHeap[TrainRecord](filepath.Join(dir, "trains.heap"), TrainRecordCodec{})
	if err != nil {
		e.log.Error("open trains heap failed", zap.Error(err))
		return nil, err
	}
	e.trainsFile, e.trainsHeap = trainsBF, trainsH

	seatsBF, seatsH, err := openHeap[SeatMatrix](filepath.Join(dir, "seats.heap"), SeatMatrixCodec{})
	if err != nil {
		e.log.Error("open seats heap failed", zap.Error(err))
		return nil, err
	}
	e.seatsFile, e.seatsHeap = seatsBF, seatsH

	ordersBF, ordersH, err := openHeap[OrderRecord](filepath.Join(dir, "orders.heap"), OrderRecordCodec{})
	if err != nil {
		e.log.Error("open orders heap failed", zap.Error(err))
		return nil, err
	}
	e.ordersFile, e.ordersHeap = ordersBF, ordersH

	e.log.Info("engine opened", zap.String("dir", dir))
	return e, nil
}

// Exit flushes and closes every tree, heap and container cleanly. No
// crash-consistency beyond an orderly shutdown is attempted.
func (e *Engine) Exit() error {
	closers := []func() error{
		e.users.Flush,
		e.trainIDs.Flush,
		e.trainsState.Close,
		e.stationsMap.Close,
		e.pendingQueue.Close,
		e.userOrders.Close,
		e.trainsFile.Close,
		e.seatsFile.Close,
		e.ordersFile.Close,
	}
	var firstErr error
	for _, c := range closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		e.log.Error("engine exit failed", zap.Error(firstErr))
	} else {
		e.log.Info("engine closed", zap.String("dir", e.dir))
	}
	_ = e.log.Sync()
	return firstErr
}

// Clean truncates every backing file and reinitializes state in place —
// spec.md §6's "Clean" external interface.
func (e *Engine) Clean() error {
	dir := e.dir
	if err := e.Exit(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if err := os.Remove(filepath.Join(dir, ent.Name())); err != nil {
			return err
		}
	}
	fresh, err := Open(dir)
	if err != nil {
		return err
	}
	*e = *fresh
	e.log.Info("engine state cleaned", zap.String("dir", dir))
	return nil
}

// openHeap opens (or creates) a blockfile-backed heap of T at path.
func openHeap[T any](path string, codec types.Codec[T]) (*blockfile.File, *heap.Heap[T], error) {
	cfg := blockfile.DefaultConfig(0)
	var bf *blockfile.File
	var err error
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		bf, err = blockfile.Init(path, cfg)
	} else {
		bf, err = blockfile.Open(path, cfg)
	}
	if err != nil {
		return nil, nil, err
	}
	return bf, heap.Open[T](bf, codec), nil
}

func nextOrderIndex(e *Engine) (int64, error) {
	n, err := e.userOrders.Size()
	if err != nil {
		return 0, fmt.Errorf("railway: order index: %w", err)
	}
	return int64(n) + 1, nil
}
