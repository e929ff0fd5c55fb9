package threat

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/veilcraft/obscura/internal/scenario"
)

// munitionsPerCarrier is the standard loadout assumed by the allocator.
const munitionsPerCarrier = 3

// Allocation maps threat ID → carrier ID → munition count.
type Allocation map[string]map[string]int

// engagementCost scores how quickly a carrier can reach a useful geometry
// against a threat: the flight time to the midpoint between the threat's
// start and its aim point, at the carrier's own position.
func engagementCost(carrier scenario.CarrierSpec, threat scenario.ThreatSpec, maxSpeed float64) float64 {
	mid := r3.Scale(0.5, r3.Add(threat.Position.R3(), threat.AimPoint.R3()))
	return r3.Norm(r3.Sub(mid, carrier.Position.R3())) / maxSpeed
}

// Allocate distributes carriers across threats proportionally to threat
// weight, rebalancing surplus toward the highest-weighted threat and deficit
// away from the lowest, then greedily assigns each threat its cheapest
// remaining carriers by engagement cost.
func Allocate(sc *scenario.Scenario, weights map[string]float64) Allocation {
	threatIDs := sc.ThreatIDs()
	carrierCount := len(sc.Carriers)

	// Weight-proportional requirements.
	need := make(map[string]int, len(threatIDs))
	total := 0
	for _, id := range threatIDs {
		n := int(math.Round(weights[id] * float64(carrierCount)))
		need[id] = n
		total += n
	}

	maxID, minID := threatIDs[0], threatIDs[0]
	for _, id := range threatIDs[1:] {
		if weights[id] > weights[maxID] {
			maxID = id
		}
		if weights[id] < weights[minID] {
			minID = id
		}
	}
	for total < carrierCount {
		need[maxID]++
		total++
	}
	for total > carrierCount && need[minID] > 0 {
		need[minID]--
		total--
	}

	// Greedy assignment: highest-weighted threats pick first, each taking its
	// cheapest unassigned carriers.
	order := append([]string(nil), threatIDs...)
	sort.Slice(order, func(a, b int) bool {
		if weights[order[a]] != weights[order[b]] {
			return weights[order[a]] > weights[order[b]]
		}
		return order[a] < order[b]
	})

	assigned := make(map[string]bool, carrierCount)
	out := make(Allocation, len(threatIDs))
	for _, threatID := range order {
		out[threatID] = make(map[string]int)
		var spec scenario.ThreatSpec
		for _, t := range sc.Threats {
			if t.ID == threatID {
				spec = t
				break
			}
		}

		type costed struct {
			id   string
			cost float64
		}
		candidates := make([]costed, 0, carrierCount)
		for _, c := range sc.Carriers {
			if assigned[c.ID] {
				continue
			}
			candidates = append(candidates, costed{
				id:   c.ID,
				cost: engagementCost(c, spec, sc.Physics.CarrierSpeedMax),
			})
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].cost != candidates[b].cost {
				return candidates[a].cost < candidates[b].cost
			}
			return candidates[a].id < candidates[b].id
		})

		for i := 0; i < need[threatID] && i < len(candidates); i++ {
			assigned[candidates[i].id] = true
			out[threatID][candidates[i].id] = munitionsPerCarrier
		}
	}
	return out
}
