package railway

import (
	"encoding/binary"
	"errors"

	"github.com/foxhollow/trackvault/internal/types"
)

var (
	ErrInsufficientSeats = errors.New("railway: not enough seats available")
	ErrOrderNotFound     = errors.New("railway: no such order")
	ErrOrderNotPending   = errors.New("railway: order is not refundable in its current state")
)

const rowSize = (MaxStations - 1) * 2 // bytes per day's seat-availability row

// BuyTicket purchases seats on trainID from "from" to "to" on date. If
// seats aren't available and acceptPending is true, the order is queued
// (StatusPending) rather than rejected — original_source/src/src/
// TicketSystem.hpp's "-q" queueing behavior. Returns the resulting order.
func (e *Engine) BuyTicket(callerHash uint64, trainID, from, to string, date types.Datetime, seats int32, acceptPending bool) (OrderRecord, error) {
	if _, ok := e.loginUsers[callerHash]; !ok {
		return OrderRecord{}, ErrNotLoggedIn
	}
	if seats <= 0 {
		return OrderRecord{}, ErrInvalidArgument
	}

	hash := StringHash(trainID)
	st, ok, err := e.trainsState.Find(hash)
	if err != nil {
		return OrderRecord{}, err
	}
	if !ok {
		return OrderRecord{}, ErrTrainNotFound
	}
	if !st.Released {
		return OrderRecord{}, ErrNotReleased
	}

	fromEntries, err := e.stationEntries(from)
	if err != nil {
		return OrderRecord{}, err
	}
	toEntries, err := e.stationEntries(to)
	if err != nil {
		return OrderRecord{}, err
	}
	fe, ok := findStationPos(fromEntries, st.TrainHeapIndex)
	if !ok {
		return OrderRecord{}, ErrInvalidArgument
	}
	te, ok := findStationPos(toEntries, st.TrainHeapIndex)
	if !ok || te.StationPos <= fe.StationPos {
		return OrderRecord{}, ErrInvalidArgument
	}

	rec, row, ok, err := e.seatRowOn(st.TrainHeapIndex, date)
	if err != nil {
		return OrderRecord{}, err
	}
	if !ok {
		return OrderRecord{}, ErrInvalidArgument
	}
	if seats > rec.SeatCap {
		return OrderRecord{}, ErrInsufficientSeats
	}

	orderIdx, err := nextOrderIndex(e)
	if err != nil {
		return OrderRecord{}, err
	}
	dayOffset := date.Date().DayOffset()

	order := OrderRecord{
		UserHash:   callerHash,
		OrderIndex: orderIdx,
		TrainIndex: st.TrainHeapIndex,
		TrainID:    rec.ID,
		From:       fe.StationPos,
		To:         te.StationPos,
		Date:       int32(dayOffset),
		Seats:      seats,
		Price:      int64(rec.Prices[te.StationPos] - rec.Prices[fe.StationPos]),
		Time:       date,
	}

	avail := minSegmentSeats(row, int(fe.StationPos), int(te.StationPos))
	if int32(avail) >= seats {
		order.Status = StatusSuccess
		if err := e.adjustSeats(st.SeatHeapIndex, dayOffset, int(fe.StationPos), int(te.StationPos), -seats); err != nil {
			return OrderRecord{}, err
		}
	} else if acceptPending {
		order.Status = StatusPending
	} else {
		return OrderRecord{}, ErrInsufficientSeats
	}

	orderHeapIdx, err := e.ordersHeap.Write(order)
	if err != nil {
		return OrderRecord{}, err
	}
	if err := e.userOrders.Insert(UserOrderKey{UserHash: callerHash, OrderIndex: orderIdx}, orderHeapIdx); err != nil {
		return OrderRecord{}, err
	}
	if order.Status == StatusPending {
		key := PendingKey{TrainIndex: st.TrainHeapIndex, Date: int32(dayOffset), OrderIndex: orderIdx}
		if err := e.pendingQueue.Insert(key, orderHeapIdx); err != nil {
			return OrderRecord{}, err
		}
	}
	return order, nil
}

// QueryOrder lists callerHash's own orders, most recent first.
func (e *Engine) QueryOrder(callerHash uint64) ([]OrderRecord, error) {
	if _, ok := e.loginUsers[callerHash]; !ok {
		return nil, ErrNotLoggedIn
	}
	heapIdxs, err := e.userOrderHeapIndexes(callerHash)
	if err != nil {
		return nil, err
	}
	out := make([]OrderRecord, len(heapIdxs))
	for i, idx := range heapIdxs {
		rec, err := e.ordersHeap.Read(idx)
		if err != nil {
			return nil, err
		}
		out[len(heapIdxs)-1-i] = rec
	}
	return out, nil
}

// RefundTicket refunds callerHash's orderIndex-th order, counting back
// from the most recent (orderIndex==1 is the latest order), matching
// original_source/src/src/TicketSystem.hpp's refund_ticket default.
// Refunding a StatusSuccess order releases its seats and then walks the
// train+date's pending queue in FIFO order, promoting any waiter whose
// seat demand now fits.
func (e *Engine) RefundTicket(callerHash uint64, orderIndex int) error {
	if _, ok := e.loginUsers[callerHash]; !ok {
		return ErrNotLoggedIn
	}
	if orderIndex <= 0 {
		return ErrInvalidArgument
	}

	heapIdxs, err := e.userOrderHeapIndexes(callerHash)
	if err != nil {
		return err
	}
	if orderIndex > len(heapIdxs) {
		return ErrOrderNotFound
	}
	heapIdx := heapIdxs[len(heapIdxs)-orderIndex]

	order, err := e.ordersHeap.Read(heapIdx)
	if err != nil {
		return err
	}
	if order.Status == StatusRefunded {
		return ErrOrderNotPending
	}
	wasSuccess := order.Status == StatusSuccess

	if order.Status == StatusPending {
		key := PendingKey{TrainIndex: order.TrainIndex, Date: order.Date, OrderIndex: order.OrderIndex}
		if err := e.pendingQueue.Remove(key); err != nil {
			return err
		}
	}
	order.Status = StatusRefunded
	if err := e.ordersHeap.Update(heapIdx, order); err != nil {
		return err
	}
	if !wasSuccess {
		return nil
	}

	st, ok, err := e.trainsState.Find(StringHash(order.TrainID.String()))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := e.adjustSeats(st.SeatHeapIndex, int(order.Date), int(order.From), int(order.To), order.Seats); err != nil {
		return err
	}
	return e.promotePending(st.SeatHeapIndex, order.TrainIndex, order.Date)
}

// promotePending walks a train+date's pending queue in FIFO order,
// promoting any waiting order whose seat demand fits in currently
// available seats.
func (e *Engine) promotePending(seatHeapIdx, trainIdx int64, date int32) error {
	var heapIdxs []int64
	err := e.pendingQueue.Search(
		PendingKey{TrainIndex: trainIdx, Date: date, OrderIndex: 0},
		PendingKey{TrainIndex: trainIdx, Date: date, OrderIndex: 1<<62 - 1},
		func(v int64) { heapIdxs = append(heapIdxs, v) },
	)
	if err != nil {
		return err
	}

	for _, heapIdx := range heapIdxs {
		order, err := e.ordersHeap.Read(heapIdx)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			continue
		}
		row, err := e.readRow(seatHeapIdx, int(date))
		if err != nil {
			return err
		}
		avail := minSegmentSeats(&row, int(order.From), int(order.To))
		if int32(avail) < order.Seats {
			continue
		}
		if err := e.adjustSeats(seatHeapIdx, int(date), int(order.From), int(order.To), -order.Seats); err != nil {
			return err
		}
		order.Status = StatusSuccess
		if err := e.ordersHeap.Update(heapIdx, order); err != nil {
			return err
		}
		key := PendingKey{TrainIndex: trainIdx, Date: date, OrderIndex: order.OrderIndex}
		if err := e.pendingQueue.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

// userOrderHeapIndexes returns userHash's order-heap indexes in filing
// (ascending OrderIndex) order.
func (e *Engine) userOrderHeapIndexes(userHash uint64) ([]int64, error) {
	var heapIdxs []int64
	err := e.userOrders.Search(
		UserOrderKey{UserHash: userHash, OrderIndex: 0},
		UserOrderKey{UserHash: userHash, OrderIndex: 1<<62 - 1},
		func(v int64) { heapIdxs = append(heapIdxs, v) },
	)
	return heapIdxs, err
}

// readRow loads one day's seat-availability row without decoding the
// whole seat matrix.
func (e *Engine) readRow(seatHeapIdx int64, dayOffset int) ([MaxStations - 1]int16, error) {
	var row [MaxStations - 1]int16
	buf := make([]byte, rowSize)
	if err := e.seatsHeap.ReadRange(seatHeapIdx, dayOffset*rowSize, buf); err != nil {
		return row, err
	}
	for i := range row {
		row[i] = int16(binary.BigEndian.Uint16(buf[i*2:]))
	}
	return row, nil
}

// adjustSeats adds delta seats (negative to consume, positive to release)
// to every segment [from, to) on the given day.
func (e *Engine) adjustSeats(seatHeapIdx int64, dayOffset, from, to int, delta int32) error {
	row, err := e.readRow(seatHeapIdx, dayOffset)
	if err != nil {
		return err
	}
	for s := from; s < to; s++ {
		row[s] += int16(delta)
	}
	buf := make([]byte, rowSize)
	for i, v := range row {
		binary.BigEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return e.seatsHeap.UpdateRange(seatHeapIdx, dayOffset*rowSize, buf)
}
