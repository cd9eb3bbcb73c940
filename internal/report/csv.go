// Package report renders a sweep's aggregate records as CSV: the
// compact result table consumed by the analysis notebooks, and an
// extended table carrying the statistics engine's diagnostics.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/mdo-br/ADS-Matrix-PQC/internal/experiment"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/stats"
)

// Header is the compact result-table column set, in order.
var Header = []string{
	"scenario", "traffic_pattern", "agreement", "cipher",
	"num_msgs", "msgs_per_rotation", "rotations",
	"kem_ms_mean", "kem_ms_std", "kem_ms_ci95",
	"cipher_ms_mean", "cipher_ms_std", "cipher_ms_ci95",
	"kem_bw_mean", "kem_bw_std", "kem_bw_ci95",
	"msg_bw_mean", "msg_bw_std", "msg_bw_ci95",
	"text_msgs", "image_msgs", "file_msgs", "system_msgs",
	"outlier_kem_ms_mean", "outlier_cipher_ms_mean",
	"outlier_kem_bw_mean", "outlier_msg_bw_mean",
}

// metricPrefixes pairs each summary with its column prefix, in table
// order.
func metricPrefixes(r experiment.AggregateRecord) []struct {
	prefix  string
	summary stats.Summary
} {
	return []struct {
		prefix  string
		summary stats.Summary
	}{
		{"kem_ms", r.KEMLatency},
		{"cipher_ms", r.CipherLatency},
		{"kem_bw", r.KEMBandwidth},
		{"msg_bw", r.MsgBandwidth},
	}
}

// formatFloat renders a table value. Undefined statistics stay
// literally NaN so downstream tooling cannot mistake them for zeros.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteCSV writes the compact result table: identity and scenario
// parameter columns, then mean/std/ci95 per metric (ci95 is the
// half-width of the 95% interval), the mean per-repetition type
// tallies, and the moderate-outlier count per metric.
func WriteCSV(w io.Writer, records []experiment.AggregateRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Config.Scenario.String(),
			r.Config.Pattern.String(),
			r.Config.Agreement.String(),
			r.Config.Cipher.String(),
			strconv.Itoa(r.NumMessages),
			strconv.Itoa(r.MsgsPerRotation),
			strconv.Itoa(r.Rotations),
		}
		for _, m := range metricPrefixes(r) {
			row = append(row,
				formatFloat(m.summary.Central),
				formatFloat(m.summary.Dispersion),
				formatFloat(m.summary.CIHalfWidth()),
			)
		}
		row = append(row,
			formatFloat(r.TextMsgs),
			formatFloat(r.ImageMsgs),
			formatFloat(r.FileMsgs),
			formatFloat(r.SystemMsgs),
		)
		for _, m := range metricPrefixes(r) {
			row = append(row, strconv.Itoa(m.summary.ModerateOutliers))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write row %s: %w", r.Config.ID(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExtendedHeader adds the statistics diagnostics per metric: which
// estimator path was taken, the interval bounds, shape moments and
// the retained sample size.
var ExtendedHeader = buildExtendedHeader()

func buildExtendedHeader() []string {
	h := []string{
		"scenario", "traffic_pattern", "agreement", "cipher",
		"num_msgs", "msgs_per_rotation", "rotations",
	}
	for _, prefix := range []string{"kem_ms", "cipher_ms", "kem_bw", "msg_bw"} {
		h = append(h,
			prefix+"_central", prefix+"_dispersion",
			prefix+"_ci_low", prefix+"_ci_high",
			prefix+"_estimator", prefix+"_skewness", prefix+"_kurtosis",
			prefix+"_n", prefix+"_moderate_outliers", prefix+"_extreme_outliers",
			prefix+"_state",
		)
	}
	return append(h, "text_msgs", "image_msgs", "file_msgs", "system_msgs")
}

func estimatorName(s stats.Summary) string {
	if s.Robust {
		return "robust"
	}
	return "parametric"
}

// WriteExtendedCSV writes the diagnostic table.
func WriteExtendedCSV(w io.Writer, records []experiment.AggregateRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExtendedHeader); err != nil {
		return fmt.Errorf("report: write extended header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Config.Scenario.String(),
			r.Config.Pattern.String(),
			r.Config.Agreement.String(),
			r.Config.Cipher.String(),
			strconv.Itoa(r.NumMessages),
			strconv.Itoa(r.MsgsPerRotation),
			strconv.Itoa(r.Rotations),
		}
		for _, m := range metricPrefixes(r) {
			row = append(row,
				formatFloat(m.summary.Central),
				formatFloat(m.summary.Dispersion),
				formatFloat(m.summary.CILow),
				formatFloat(m.summary.CIHigh),
				estimatorName(m.summary),
				formatFloat(m.summary.Skewness),
				formatFloat(m.summary.Kurtosis),
				strconv.Itoa(m.summary.SampleSize),
				strconv.Itoa(m.summary.ModerateOutliers),
				strconv.Itoa(m.summary.ExtremeOutliers),
				m.summary.State.String(),
			)
		}
		row = append(row,
			formatFloat(r.TextMsgs),
			formatFloat(r.ImageMsgs),
			formatFloat(r.FileMsgs),
			formatFloat(r.SystemMsgs),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write extended row %s: %w", r.Config.ID(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}
