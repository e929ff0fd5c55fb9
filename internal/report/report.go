// Package report exports mission plans as CSV and JSON artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/veilcraft/obscura/internal/mission"
	"github.com/veilcraft/obscura/internal/scenario"
)

// DeploymentRow is one munition release in the flattened CSV export.
type DeploymentRow struct {
	Threat     string  `csv:"threat"`
	Carrier    string  `csv:"carrier"`
	Munition   int     `csv:"munition"`
	Speed      float64 `csv:"speed_mps"`
	HeadingRad float64 `csv:"heading_rad"`
	DeployTime float64 `csv:"deploy_time_s"`
	FuseTime   float64 `csv:"fuse_time_s"`
	DetonateX  float64 `csv:"detonate_x"`
	DetonateY  float64 `csv:"detonate_y"`
	DetonateZ  float64 `csv:"detonate_z"`
}

// Summary is the JSON companion to the CSV rows.
type Summary struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	WeightedScore float64             `json:"weighted_score"`
	Threats       []ThreatSummary     `json:"threats"`
	Allocation    map[string][]string `json:"allocation"`
}

// ThreatSummary is the per-threat slice of the summary.
type ThreatSummary struct {
	ThreatID    string  `json:"threat_id"`
	Weight      float64 `json:"weight"`
	CoveredTime float64 `json:"covered_time_s"`
	Generations int     `json:"generations"`
	Converged   bool    `json:"converged"`
}

// Writer lays mission artifacts down in a single output directory.
type Writer struct {
	dir string
}

// NewWriter creates the output directory. An empty dir disables output and
// returns a nil writer, which all methods accept.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory path.
func (w *Writer) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// WritePlan writes deployments.csv and summary.json for the plan. The
// scenario supplies ballistics so detonation points can be reconstructed.
func (w *Writer) WritePlan(sc *scenario.Scenario, plan *mission.MissionPlan) error {
	if w == nil {
		return nil
	}
	rows, err := Rows(sc, plan)
	if err != nil {
		return err
	}

	csvPath := filepath.Join(w.dir, "deployments.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating deployments.csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal(rows, f); err != nil {
		return fmt.Errorf("writing deployments: %w", err)
	}

	data, err := json.MarshalIndent(Summarize(plan), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, "summary.json"), data, 0644); err != nil {
		return fmt.Errorf("writing summary.json: %w", err)
	}
	return nil
}

// WriteScenario saves the scenario used for the run alongside the results.
func (w *Writer) WriteScenario(sc *scenario.Scenario) error {
	if w == nil {
		return nil
	}
	return sc.WriteYAML(filepath.Join(w.dir, "scenario.yaml"))
}

// Rows flattens a mission plan into per-munition CSV rows, re-simulating the
// ballistic arcs to recover detonation points.
func Rows(sc *scenario.Scenario, plan *mission.MissionPlan) ([]DeploymentRow, error) {
	var rows []DeploymentRow
	for _, tp := range plan.Threats {
		carrierIDs := make([]string, 0, len(tp.Strategy))
		for id := range tp.Strategy {
			carrierIDs = append(carrierIDs, id)
		}
		sort.Strings(carrierIDs)

		for _, carrierID := range carrierIDs {
			cp := tp.Strategy[carrierID]
			carrier, err := sc.Carrier(carrierID)
			if err != nil {
				return nil, err
			}
			carrier.SetFlightPlan(cp.Speed, cp.Heading)

			for i, mp := range cp.Munitions {
				mun, err := carrier.Deploy(mp.DeployTime, mp.FuseTime, sc.Physics.Ballistics())
				if err != nil {
					return nil, err
				}
				det := mun.DetonationPoint()
				rows = append(rows, DeploymentRow{
					Threat:     tp.ThreatID,
					Carrier:    carrierID,
					Munition:   i + 1,
					Speed:      cp.Speed,
					HeadingRad: cp.Heading,
					DeployTime: mp.DeployTime,
					FuseTime:   mp.FuseTime,
					DetonateX:  det.X,
					DetonateY:  det.Y,
					DetonateZ:  det.Z,
				})
			}
		}
	}
	return rows, nil
}

// Summarize builds the JSON summary for a plan.
func Summarize(plan *mission.MissionPlan) Summary {
	s := Summary{
		GeneratedAt:   time.Now().UTC(),
		WeightedScore: plan.WeightedScore,
		Allocation:    make(map[string][]string),
	}
	for _, tp := range plan.Threats {
		s.Threats = append(s.Threats, ThreatSummary{
			ThreatID:    tp.ThreatID,
			Weight:      tp.Weight,
			CoveredTime: tp.CoveredTime,
			Generations: tp.Generations,
			Converged:   tp.Converged,
		})
		carriers := make([]string, 0, len(tp.Allocation))
		for id := range tp.Allocation {
			carriers = append(carriers, id)
		}
		sort.Strings(carriers)
		s.Allocation[tp.ThreatID] = carriers
	}
	return s
}
