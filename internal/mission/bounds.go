package mission

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/veilcraft/obscura/internal/scenario"
)

const (
	deployProbeStart = 0.1
	deployProbeStep  = 0.5
	deployProbeEnd   = 40.0
	// deployFallback bounds the deploy dimension when no probed strategy
	// yields a useful detonation geometry.
	deployFallback = 10.0
)

// DeployWindow probes extreme deployment strategies to bound the deploy-time
// dimension for a carrier engaging a threat: the carrier flies at maximum
// speed toward the threat's aim point and the fuse takes its extreme values.
// The largest deploy time whose detonation still projects between the threat
// and the target along the threat's flight axis is returned.
func DeployWindow(sc *scenario.Scenario, carrierID, threatID string) (float64, error) {
	carrier, err := sc.Carrier(carrierID)
	if err != nil {
		return 0, err
	}
	threat, err := sc.Threat(threatID)
	if err != nil {
		return 0, err
	}

	aim := threat.AimPoint()
	start := carrier.Start()
	heading := math.Atan2(aim.Y-start.Y, aim.X-start.X)
	carrier.SetFlightPlan(sc.Physics.CarrierSpeedMax, heading)

	fuseOptions := []float64{deployProbeStart, sc.Physics.CloudLifetime}
	targetBase := sc.Target.BaseCenter.R3()
	axis := threat.Direction()

	best := 0.0
	for tDeploy := deployProbeStart; tDeploy < deployProbeEnd; tDeploy += deployProbeStep {
		for _, fuse := range fuseOptions {
			mun, err := carrier.Deploy(tDeploy, fuse, sc.Physics.Ballistics())
			if err != nil {
				continue
			}
			det := mun.DetonationPoint()
			detTime := mun.DetonationTime()
			if detTime >= threat.TimeToImpact() {
				continue
			}
			if between(threat.Position(detTime), det, targetBase, axis) {
				best = tDeploy
				break
			}
		}
	}

	if best <= 0 {
		return deployFallback, nil
	}
	return best, nil
}

// between reports whether the cloud projects between the threat and the
// target along the threat's flight axis.
func between(threatPos, cloudPos, targetPos, axis r3.Vec) bool {
	projThreat := r3.Dot(threatPos, axis)
	projCloud := r3.Dot(cloudPos, axis)
	projTarget := r3.Dot(targetPos, axis)
	return projThreat < projCloud && projCloud < projTarget
}
