package ward

// PatientSummary is the derived headline for one patient card.
// VisibleAlerts counts the alerts surviving the current filter for that
// patient regardless of their Active/Acknowledged status: it reflects
// what is visible under the filter, not literal activeness.
type PatientSummary struct {
	Status        PatientStatus `json:"status"`
	VisibleAlerts int           `json:"visible_alerts"`
}

// Summary holds the three headline metrics over the roster. Stable is
// the residual total − critical − warning, so Monitoring-status patients
// land in the stable figure while their cards show Monitoring.
type Summary struct {
	Critical int `json:"critical_count"`
	Warning  int `json:"warning_count"`
	Stable   int `json:"stable_count"`
}

// Aggregate collapses the filtered alert list into a per-patient status
// map and the headline summary. Status is the maximum severity of the
// patient's surviving alerts via the total order Critical > Warning >
// Monitoring; patients with no surviving alerts are Stable. Every roster
// patient appears in the map.
func Aggregate(filtered []JoinedAlert, roster []Patient) (map[int]PatientSummary, Summary) {
	per := make(map[int]PatientSummary, len(roster))
	for _, p := range roster {
		per[p.ID] = PatientSummary{Status: StatusStable}
	}

	for _, al := range filtered {
		ps, ok := per[al.PatientID]
		if !ok {
			// not on the roster; the join should have dropped it
			continue
		}
		ps.VisibleAlerts++
		if st := statusFor(al.Severity); severityOf(st) > severityOf(ps.Status) {
			ps.Status = st
		}
		per[al.PatientID] = ps
	}

	var sum Summary
	for _, ps := range per {
		switch ps.Status {
		case StatusCritical:
			sum.Critical++
		case StatusWarning:
			sum.Warning++
		}
	}
	sum.Stable = len(roster) - sum.Critical - sum.Warning
	return per, sum
}

// severityOf inverts statusFor so the aggregation can compare statuses
// with the severity total order. Stable ranks below everything.
func severityOf(st PatientStatus) int {
	switch st {
	case StatusCritical:
		return SeverityCritical.rank()
	case StatusWarning:
		return SeverityWarning.rank()
	case StatusMonitoring:
		return SeverityMonitoring.rank()
	default:
		return 0
	}
}
