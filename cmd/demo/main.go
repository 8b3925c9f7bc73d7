// Command demo wires an internal/railway.Engine against a temp data
// directory and drives a short scripted sequence end to end, purely to
// exercise the storage core through a real caller. It is not the
// line-oriented command-stream interpreter spec.md declares out of
// scope — no timestamp echoing, no "-x value" flag parsing.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/foxhollow/trackvault/internal/railway"
	"github.com/foxhollow/trackvault/internal/types"
)

func main() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("trackvault demo: B+-tree-backed railway ticketing storage core")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	dir, err := os.MkdirTemp("", "trackvault-demo-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	eng, err := railway.Open(dir)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Exit()

	fmt.Printf("✓ Opened engine at %s\n", dir)

	fmt.Println("\n[Users]")
	if err := eng.AddUser(0, false, "admin", "adminpw", "Administrator", "admin@trackvault.dev", 10); err != nil {
		log.Fatalf("AddUser(admin): %v", err)
	}
	fmt.Println("  AddUser admin (bootstrap, privilege 10)")

	adminHash, err := eng.Login("admin", "adminpw")
	if err != nil {
		log.Fatalf("Login(admin): %v", err)
	}
	fmt.Println("  Login admin -> ok")

	if err := eng.AddUser(adminHash, true, "alice", "alicepw", "Alice", "alice@trackvault.dev", 3); err != nil {
		log.Fatalf("AddUser(alice): %v", err)
	}
	fmt.Println("  AddUser alice (privilege 3)")

	aliceHash, err := eng.Login("alice", "alicepw")
	if err != nil {
		log.Fatalf("Login(alice): %v", err)
	}
	fmt.Println("  Login alice -> ok")

	fmt.Println("\n[Trains]")
	start, _ := types.ParseDatetime("06-01 08:00")
	saleStart, _ := types.ParseDate("06-01")
	saleEnd, _ := types.ParseDate("08-31")
	spec := railway.TrainSpec{
		ID:            "G1234",
		Stations:      []string{"Beijing", "Jinan", "Shanghai"},
		SeatCap:       50,
		Prices:        []int32{100, 150},
		StartTime:     start,
		TravelTimes:   []int32{120, 180},
		StopoverTimes: []int32{5},
		SaleStart:     saleStart,
		SaleEnd:       saleEnd,
	}
	if err := eng.AddTrain(spec); err != nil {
		log.Fatalf("AddTrain: %v", err)
	}
	fmt.Println("  AddTrain G1234: Beijing -> Jinan -> Shanghai")

	if err := eng.ReleaseTrain("G1234"); err != nil {
		log.Fatalf("ReleaseTrain: %v", err)
	}
	fmt.Println("  ReleaseTrain G1234")

	fmt.Println("\n[Query]")
	date, _ := types.ParseDate("06-15")
	options, err := eng.QueryTicket("Beijing", "Shanghai", date)
	if err != nil {
		log.Fatalf("QueryTicket: %v", err)
	}
	for _, o := range options {
		fmt.Printf("  %s: leave %s arrive %s price %d seats %d\n",
			o.TrainID, o.LeaveTime, o.ArriveTime, o.Price, o.Seats)
	}

	fmt.Println("\n[Orders]")
	order, err := eng.BuyTicket(aliceHash, "G1234", "Beijing", "Shanghai", date, 2, false)
	if err != nil {
		log.Fatalf("BuyTicket: %v", err)
	}
	fmt.Printf("  BuyTicket -> order %d, status %d, price %d\n", order.OrderIndex, order.Status, order.Price)

	orders, err := eng.QueryOrder(aliceHash)
	if err != nil {
		log.Fatalf("QueryOrder: %v", err)
	}
	fmt.Printf("  QueryOrder: %d order(s) on file\n", len(orders))

	if err := eng.RefundTicket(aliceHash, 1); err != nil {
		log.Fatalf("RefundTicket: %v", err)
	}
	fmt.Println("  RefundTicket order 1 -> seats released, pending queue re-checked")

	train, row, err := eng.QueryTrain("G1234", date.DayOffset())
	if err != nil {
		log.Fatalf("QueryTrain: %v", err)
	}
	if row != nil {
		fmt.Printf("  QueryTrain G1234 on %s: seats available per segment %v\n", date, *row)
	} else {
		fmt.Printf("  QueryTrain G1234: %s\n", train.ID.String())
	}

	fmt.Println("\n✓ Demo sequence complete; Exit() will flush every tree, heap and container.")
}
