package railway

import (
	"errors"
	"sort"

	"github.com/foxhollow/trackvault/internal/types"
)

var (
	ErrTrainExists     = errors.New("railway: train already exists")
	ErrTrainNotFound   = errors.New("railway: no such train")
	ErrAlreadyReleased = errors.New("railway: train already released")
	ErrNotReleased     = errors.New("railway: train is not released for sale")
)

// TrainSpec is the caller-supplied description of a new train's route and
// schedule, grounded on original_source/src/src/TrainSystem.hpp's
// add_train command fields.
type TrainSpec struct {
	ID            string
	Stations      []string
	SeatCap       int32
	Prices        []int32 // per-segment price, len(Stations)-1
	StartTime     types.Datetime
	TravelTimes   []int32 // per-segment travel minutes, len(Stations)-1
	StopoverTimes []int32 // dwell minutes at stations[1..len-2], len(Stations)-2
	SaleStart     types.Datetime
	SaleEnd       types.Datetime
}

// AddTrain registers a new, unreleased train. Prices are stored as a
// prefix sum so a fare between any two stations is prices[to]-prices[from]
// (original_source/src/src/Train.hpp).
func (e *Engine) AddTrain(spec TrainSpec) error {
	n := len(spec.Stations)
	if n < 2 || n > MaxStations {
		return ErrInvalidArgument
	}
	if len(spec.Prices) != n-1 || len(spec.TravelTimes) != n-1 || len(spec.StopoverTimes) != n-2 {
		return ErrInvalidArgument
	}
	hash := StringHash(spec.ID)
	if _, ok, err := e.trainsState.Find(hash); err != nil {
		return err
	} else if ok {
		return ErrTrainExists
	}

	rec := TrainRecord{
		ID:           types.NewTrainID(spec.ID),
		StationCount: int32(n),
		SeatCap:      spec.SeatCap,
		StartDate:    spec.SaleStart.Date(),
		EndDate:      spec.SaleEnd.Date(),
	}
	cursor := types.Datetime(spec.StartTime.TimeOfDay())
	var priceSum int32
	for i := 0; i < n; i++ {
		rec.Stations[i] = types.NewStationName(spec.Stations[i])
		rec.Prices[i] = priceSum
		rec.LeaveOffset[i] = int32(cursor)
		if i == n-1 {
			break
		}
		priceSum += spec.Prices[i]
		cursor = cursor.AddMinutes(int(spec.TravelTimes[i]))
		rec.ArriveOffset[i+1] = int32(cursor)
		if i < n-2 {
			cursor = cursor.AddMinutes(int(spec.StopoverTimes[i]))
		}
	}

	trainIdx, err := e.trainsHeap.Write(rec)
	if err != nil {
		return err
	}
	idIdx, err := e.trainIDs.Append(rec.ID)
	if err != nil {
		return err
	}
	// trainsHeap's block indices start at 1 (block 0 is the blockfile
	// header); trainIDs is a plain 0-indexed vector, so the two stay in
	// lockstep with a constant offset of one.
	if int64(idIdx)+1 != trainIdx {
		panic("railway: train_id_array fell out of sync with trains heap")
	}
	return e.trainsState.Insert(hash, TrainState{TrainHeapIndex: trainIdx, SeatHeapIndex: -1, Released: false})
}

// trainDisplayID resolves a train's display ID from its heap index via
// trainIDs, rather than reading the full TrainRecord back out of
// trainsHeap just for its ID field.
func (e *Engine) trainDisplayID(trainIdx int64) types.TrainID {
	return e.trainIDs.Get(int(trainIdx) - 1)
}

// DeleteTrain removes an unreleased train.
func (e *Engine) DeleteTrain(trainID string) error {
	hash := StringHash(trainID)
	st, ok, err := e.trainsState.Find(hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTrainNotFound
	}
	if st.Released {
		return ErrAlreadyReleased
	}
	return e.trainsState.Remove(hash)
}

// ReleaseTrain makes a train sellable: it gets a seat matrix initialized
// to full capacity for every (segment, day) pair, and an entry in
// stationsMap for every station it calls at.
func (e *Engine) ReleaseTrain(trainID string) error {
	hash := StringHash(trainID)
	st, ok, err := e.trainsState.Find(hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTrainNotFound
	}
	if st.Released {
		return ErrAlreadyReleased
	}

	rec, err := e.trainsHeap.Read(st.TrainHeapIndex)
	if err != nil {
		return err
	}

	var matrix SeatMatrix
	for d := 0; d < SeatDays; d++ {
		for s := 0; s < int(rec.StationCount)-1; s++ {
			matrix.Seats[d][s] = int16(rec.SeatCap)
		}
	}
	seatIdx, err := e.seatsHeap.Write(matrix)
	if err != nil {
		return err
	}

	for i := 0; i < int(rec.StationCount); i++ {
		key := StationKey{StationHash: StringHash(rec.Stations[i].String()), TrainIndex: st.TrainHeapIndex}
		lite := TrainLite{TrainIndex: st.TrainHeapIndex, StationPos: int32(i), ArriveOffset: rec.ArriveOffset[i], LeaveOffset: rec.LeaveOffset[i]}
		if err := e.stationsMap.Insert(key, lite); err != nil {
			return err
		}
	}

	st.SeatHeapIndex = seatIdx
	st.Released = true
	return e.trainsState.Modify(hash, st)
}

// QueryTrain returns a train's static schedule and, if released, its
// current seat-availability row for the given day offset (0 = June 1).
func (e *Engine) QueryTrain(trainID string, dayOffset int) (TrainRecord, *[MaxStations - 1]int16, error) {
	hash := StringHash(trainID)
	st, ok, err := e.trainsState.Find(hash)
	if err != nil {
		return TrainRecord{}, nil, err
	}
	if !ok {
		return TrainRecord{}, nil, ErrTrainNotFound
	}
	rec, err := e.trainsHeap.Read(st.TrainHeapIndex)
	if err != nil {
		return TrainRecord{}, nil, err
	}
	if !st.Released || dayOffset < 0 || dayOffset >= SeatDays {
		return rec, nil, nil
	}
	matrix, err := e.seatsHeap.Read(st.SeatHeapIndex)
	if err != nil {
		return rec, nil, err
	}
	row := matrix.Seats[dayOffset]
	return rec, &row, nil
}

// TicketOption is one direct-train itinerary result for QueryTicket.
type TicketOption struct {
	TrainID               string
	LeaveTime, ArriveTime types.Datetime
	Price                 int64
	Seats                 int32
}

// QueryTicket finds every train running directly from "from" to "to" that
// is sellable on date (the departure calendar day at "from"), sorted by
// price then train ID.
func (e *Engine) QueryTicket(from, to string, date types.Datetime) ([]TicketOption, error) {
	fromEntries, err := e.stationEntries(from)
	if err != nil {
		return nil, err
	}
	toEntries, err := e.stationEntries(to)
	if err != nil {
		return nil, err
	}
	toByTrain := map[int64]TrainLite{}
	for _, te := range toEntries {
		toByTrain[te.TrainIndex] = te
	}

	var out []TicketOption
	for _, fe := range fromEntries {
		te, ok := toByTrain[fe.TrainIndex]
		if !ok || te.StationPos <= fe.StationPos {
			continue
		}
		rec, row, ok, err := e.seatRowOn(fe.TrainIndex, date)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		avail := minSegmentSeats(row, int(fe.StationPos), int(te.StationPos))
		if avail <= 0 {
			continue
		}
		out = append(out, TicketOption{
			TrainID:    e.trainDisplayID(fe.TrainIndex).String(),
			LeaveTime:  date.Date().AddMinutes(int(fe.LeaveOffset)),
			ArriveTime: date.Date().AddMinutes(int(te.ArriveOffset)),
			Price:      int64(rec.Prices[te.StationPos] - rec.Prices[fe.StationPos]),
			Seats:      int32(avail),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].TrainID < out[j].TrainID
	})
	return out, nil
}

// QueryTransfer finds the cheapest (then fastest) one-interchange
// itinerary from "from" to "to" through any shared intermediate station,
// both legs departing their own station on the same calendar day as
// "date" — original_source/src/src/Train.hpp's Transfer semantics,
// simplified to same-day connections.
func (e *Engine) QueryTransfer(from, to string, date types.Datetime) (*Transfer, error) {
	fromEntries, err := e.stationEntries(from)
	if err != nil {
		return nil, err
	}
	toEntries, err := e.stationEntries(to)
	if err != nil {
		return nil, err
	}

	var best *Transfer
	var bestPrice int64
	var bestDuration int32

	for _, fe := range fromEntries {
		rec1, row1, ok, err := e.seatRowOn(fe.TrainIndex, date)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for mid := int(fe.StationPos) + 1; mid < int(rec1.StationCount); mid++ {
			midName := rec1.Stations[mid].String()
			if midName == to {
				continue
			}
			midEntries, err := e.stationEntries(midName)
			if err != nil {
				return nil, err
			}
			for _, te2 := range toEntries {
				if te2.TrainIndex == fe.TrainIndex {
					continue
				}
				me, ok := findStationPos(midEntries, te2.TrainIndex)
				if !ok || me.StationPos >= te2.StationPos {
					continue
				}
				if me.LeaveOffset < rec1.ArriveOffset[mid] {
					continue // second train already left before the first arrives
				}
				rec2, row2, ok2, err := e.seatRowOn(te2.TrainIndex, date)
				if err != nil {
					return nil, err
				}
				if !ok2 {
					continue
				}
				avail1 := minSegmentSeats(row1, int(fe.StationPos), mid)
				avail2 := minSegmentSeats(row2, int(me.StationPos), int(te2.StationPos))
				if avail1 <= 0 || avail2 <= 0 {
					continue
				}
				price := int64(rec1.Prices[mid]-rec1.Prices[fe.StationPos]) + int64(rec2.Prices[te2.StationPos]-rec2.Prices[me.StationPos])
				duration := rec2.ArriveOffset[te2.StationPos] - rec1.LeaveOffset[fe.StationPos]
				if best == nil || price < bestPrice || (price == bestPrice && duration < bestDuration) {
					t := Transfer{
						TrainID1: e.trainDisplayID(fe.TrainIndex), TrainID2: e.trainDisplayID(te2.TrainIndex),
						From: types.NewStationName(from), Mid: rec1.Stations[mid], To: types.NewStationName(to),
						LeaveTime1:  date.Date().AddMinutes(int(rec1.LeaveOffset[fe.StationPos])),
						ArriveTime1: date.Date().AddMinutes(int(rec1.ArriveOffset[mid])),
						LeaveTime2:  date.Date().AddMinutes(int(me.LeaveOffset)),
						ArriveTime2: date.Date().AddMinutes(int(rec2.ArriveOffset[te2.StationPos])),
						Price1:      int64(rec1.Prices[mid] - rec1.Prices[fe.StationPos]),
						Price2:      int64(rec2.Prices[te2.StationPos] - rec2.Prices[me.StationPos]),
						Seats1:      int32(avail1),
						Seats2:      int32(avail2),
					}
					best = &t
					bestPrice = price
					bestDuration = duration
				}
			}
		}
	}
	return best, nil
}

func findStationPos(entries []TrainLite, trainIdx int64) (TrainLite, bool) {
	for _, e := range entries {
		if e.TrainIndex == trainIdx {
			return e, true
		}
	}
	return TrainLite{}, false
}

func minSegmentSeats(row *[MaxStations - 1]int16, from, to int) int {
	min := 1 << 30
	for s := from; s < to; s++ {
		if int(row[s]) < min {
			min = int(row[s])
		}
	}
	return min
}

// stationEntries gathers every TrainLite for a given station name.
func (e *Engine) stationEntries(station string) ([]TrainLite, error) {
	hash := StringHash(station)
	var out []TrainLite
	err := e.stationsMap.Search(
		StationKey{StationHash: hash, TrainIndex: 0},
		StationKey{StationHash: hash, TrainIndex: 1<<62 - 1},
		func(v TrainLite) { out = append(out, v) },
	)
	return out, err
}

// seatRowOn resolves trainIdx's seat-availability row for the calendar day
// "date" falls on, returning ok=false if the train isn't released or the
// date is outside its sale window / the sellable June-August window.
func (e *Engine) seatRowOn(trainIdx int64, date types.Datetime) (TrainRecord, *[MaxStations - 1]int16, bool, error) {
	rec, err := e.trainsHeap.Read(trainIdx)
	if err != nil {
		return TrainRecord{}, nil, false, err
	}
	hash := StringHash(rec.ID.String())
	st, ok, err := e.trainsState.Find(hash)
	if err != nil {
		return rec, nil, false, err
	}
	if !ok || !st.Released {
		return rec, nil, false, nil
	}
	day := date.Date()
	if day < rec.StartDate || day > rec.EndDate {
		return rec, nil, false, nil
	}
	dayOffset := day.DayOffset()
	if dayOffset < 0 || dayOffset >= SeatDays {
		return rec, nil, false, nil
	}
	full, err := e.seatsHeap.Read(st.SeatHeapIndex)
	if err != nil {
		return rec, nil, false, err
	}
	row := full.Seats[dayOffset]
	return rec, &row, true, nil
}
