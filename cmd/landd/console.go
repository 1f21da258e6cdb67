package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/virtualand/landgrid/internal/district"
	"github.com/virtualand/landgrid/internal/economy"
	"github.com/virtualand/landgrid/internal/grid"
	"github.com/virtualand/landgrid/internal/pricing"
	"github.com/virtualand/landgrid/internal/registry"
)

type consoleDeps struct {
	reg    *registry.Registry
	table  *district.Table
	engine *economy.Engine
	prices *pricing.Table

	// visited emulates the session layer's visited-parcel set so the
	// exploration stats can be exercised locally.
	visited map[int]bool
}

// runConsole reads commands from stdin until EOF or quit.
func runConsole(d consoleDeps) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "claim":
			d.doClaim(parts[1:])
		case "list":
			d.doList(parts[1:])
		case "cancel":
			d.doCancel(parts[1:])
		case "buy":
			d.doBuy(parts[1:])
		case "owner":
			d.doOwner(parts[1:])
		case "owned":
			d.doOwned(parts[1:])
		case "market":
			d.doMarket(parts[1:])
		case "events":
			d.doEvents(parts[1:])
		case "price":
			d.doPrice(parts[1:])
		case "visit":
			d.doVisit(parts[1:])
		case "district":
			d.doDistrict(parts[1:])
		case "economy":
			d.doEconomy(parts[1:])
		case "parcel":
			d.doParcel(parts[1:])
		default:
			fmt.Println("unknown command; try 'help'")
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  claim <parcel> <address>          claim an unowned parcel
  list <parcel> <address> <price>   list an owned parcel for sale
  cancel <parcel> <address>         cancel an active listing
  buy <parcel> <address> <price>    purchase a listed parcel
  owner <parcel>                    show ownership record
  owned <address>                   show parcels owned by an address
  market [address]                  show active listings, newest first
  events [n]                        show recent ledger events
  price <parcel>                    quote the claim cost
  visit <parcel>                    mark a parcel visited (session emulation)
  district <parcel>                 resolve a parcel's district
  economy <district-id>             show district economy stats
  parcel <parcel> [visits]          show parcel economy stats
  quit`)
}

func parseParcel(arg string) (int, grid.Coord, bool) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println("bad parcel id:", arg)
		return 0, grid.Coord{}, false
	}
	c, err := grid.CoordOf(id)
	if err != nil {
		fmt.Println(err)
		return 0, grid.Coord{}, false
	}
	return id, c, true
}

func (d consoleDeps) districtOf(c grid.Coord) district.District {
	return d.table.Resolve(c)
}

func (d consoleDeps) doClaim(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: claim <parcel> <address>")
		return
	}
	id, c, ok := parseParcel(args[0])
	if !ok {
		return
	}
	dist := d.districtOf(c)
	own, err := d.reg.Claim(id, args[1], dist.ID)
	if err != nil {
		fmt.Println("claim failed:", err)
		return
	}
	fmt.Printf("claimed parcel %d in %s for %.2f\n", id, dist.Name, own.AcquisitionCost)
}

func (d consoleDeps) doList(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: list <parcel> <address> <price>")
		return
	}
	id, c, ok := parseParcel(args[0])
	if !ok {
		return
	}
	price, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		fmt.Println("bad price:", args[2])
		return
	}
	l, err := d.reg.ListForSale(id, args[1], price, d.districtOf(c).ID)
	if err != nil {
		fmt.Println("list failed:", err)
		return
	}
	fmt.Printf("parcel %d listed at %.2f\n", id, l.Price)
}

func (d consoleDeps) doCancel(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: cancel <parcel> <address>")
		return
	}
	id, c, ok := parseParcel(args[0])
	if !ok {
		return
	}
	if err := d.reg.CancelListing(id, args[1], d.districtOf(c).ID); err != nil {
		fmt.Println("cancel failed:", err)
		return
	}
	fmt.Printf("listing for parcel %d canceled\n", id)
}

func (d consoleDeps) doBuy(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: buy <parcel> <address> <price>")
		return
	}
	id, c, ok := parseParcel(args[0])
	if !ok {
		return
	}
	price, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		fmt.Println("bad price:", args[2])
		return
	}
	own, err := d.reg.Purchase(id, args[1], price, d.districtOf(c).ID)
	if err != nil {
		fmt.Println("purchase failed:", err)
		return
	}
	fmt.Printf("parcel %d now owned by %s (paid %.2f)\n", id, own.Owner, own.AcquisitionCost)
}

func (d consoleDeps) doOwner(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: owner <parcel>")
		return
	}
	id, _, ok := parseParcel(args[0])
	if !ok {
		return
	}
	own, found := d.reg.OwnershipOf(id)
	if !found {
		fmt.Printf("parcel %d is unowned\n", id)
		return
	}
	fmt.Printf("parcel %d: owner %s, acquired %s for %.2f\n",
		id, own.Owner, own.AcquiredAt.Format("2006-01-02 15:04:05"), own.AcquisitionCost)
}

func (d consoleDeps) doOwned(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: owned <address>")
		return
	}
	ids := d.reg.OwnedParcels(args[0])
	if len(ids) == 0 {
		fmt.Println("no parcels owned")
		return
	}
	fmt.Printf("%s owns %d parcel(s): %v\n", args[0], len(ids), ids)
}

func (d consoleDeps) doMarket(args []string) {
	var listings []registry.ListedParcel
	if len(args) > 0 {
		listings = d.reg.ActiveListings(args[0])
	} else {
		listings = d.reg.AllActiveListings()
	}
	if len(listings) == 0 {
		fmt.Println("no active listings")
		return
	}
	for _, l := range listings {
		fmt.Printf("  parcel %d — %.2f by %s (%s)\n", l.ParcelID, l.Price, l.Owner,
			l.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func (d consoleDeps) doEvents(args []string) {
	limit := 10
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			limit = n
		}
	}
	events := d.reg.RecentEvents(limit)
	if len(events) == 0 {
		fmt.Println("no events")
		return
	}
	for _, e := range events {
		line := fmt.Sprintf("  %s %s parcel=%d district=%s actor=%s",
			e.Timestamp.Format("15:04:05"), e.Type, e.ParcelID, e.DistrictID, e.Actor)
		if e.Counterparty != "" {
			line += " counterparty=" + e.Counterparty
		}
		if e.Price != 0 {
			line += fmt.Sprintf(" price=%.2f", e.Price)
		}
		fmt.Println(line)
	}
}

func (d consoleDeps) doPrice(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: price <parcel>")
		return
	}
	id, c, ok := parseParcel(args[0])
	if !ok {
		return
	}
	dist := d.districtOf(c)
	fmt.Printf("claim cost for parcel %d (%s): %.2f\n", id, dist.Name, d.prices.CostOf(c, dist.ID))
}

func (d consoleDeps) doVisit(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: visit <parcel>")
		return
	}
	id, _, ok := parseParcel(args[0])
	if !ok {
		return
	}
	d.visited[id] = true
	fmt.Printf("parcel %d marked visited (%d total)\n", id, len(d.visited))
}

func (d consoleDeps) doDistrict(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: district <parcel>")
		return
	}
	_, c, ok := parseParcel(args[0])
	if !ok {
		return
	}
	dist := d.districtOf(c)
	fmt.Printf("(%d, %d) → %s (%s)\n", c.X, c.Z, dist.Name, dist.ID)
}

func (d consoleDeps) doEconomy(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: economy <district-id>")
		return
	}
	dist, ok := d.table.Get(strings.ToUpper(args[0]))
	if !ok {
		fmt.Println("unknown district:", args[0])
		return
	}
	s := d.engine.DistrictStats(dist, d.visited)
	fmt.Printf("%s: parcels=%d visited=%d explored=%.1f%% buildings=%d forSale=%d\n",
		s.DistrictID, s.ParcelCount, s.VisitedCount, s.ExploredPct, s.BuildingCount, s.ForSaleCount)
	if s.FloorPrice != nil {
		fmt.Printf("  floor=%.2f avg=%.2f\n", *s.FloorPrice, *s.AvgPrice)
	}
	fmt.Printf("  xpMult=%.2f airdropWeight=%.3f rating=%.1f\n",
		s.XPMultiplier, s.AirdropWeight, s.EconomyRating)
}

func (d consoleDeps) doParcel(args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Println("usage: parcel <parcel> [visits]")
		return
	}
	id, _, ok := parseParcel(args[0])
	if !ok {
		return
	}
	visits := 0
	if len(args) == 2 {
		visits, _ = strconv.Atoi(args[1])
	}

	var ownPtr *registry.Ownership
	if own, found := d.reg.OwnershipOf(id); found {
		ownPtr = &own
	}
	s := d.engine.ParcelStats(id, visits, ownPtr)
	fmt.Printf("parcel %d: interactionsXP=%.0f explorationXP=%.0f score=%.1f totalValue=%.2f\n",
		s.ParcelID, s.InteractionsXP, s.ExplorationXP, s.DistrictEconomyScore, s.TotalValue)
	if s.CurrentValue != nil {
		fmt.Printf("  currentValue=%.2f\n", *s.CurrentValue)
	}
	if s.Appreciation != nil {
		fmt.Printf("  appreciation=%.1f%%\n", *s.Appreciation)
	}
}
