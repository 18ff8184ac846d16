package timeseries

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	log "github.com/sirupsen/logrus"

	"tenant-sim/internal/database"
	"tenant-sim/internal/plot/timeseries/mappings"
	plottemplate "tenant-sim/internal/plot/timeseries/templates/plot"
	wrappertemplate "tenant-sim/internal/plot/timeseries/templates/wrapper"
	"tenant-sim/internal/pool"
	"tenant-sim/internal/results"
)

// Options control what a timeseries plot shows.
type Options struct {
	// YField selects the plotted metric: "cost", "<dim>_requested",
	// "<dim>_granted", "<dim>_unmet", "<dim>_jain" or "<dim>_utilization".
	YField string
	// Tenants restricts the plot to the named tenants. Empty means all.
	Tenants []string
	// Interval aggregates ticks into buckets of this many ticks, plotting
	// the bucket mean. Values below 2 plot the raw series.
	Interval int
	// YMin and YMax override the field's default axis bounds when set.
	YMin *float64
	YMax *float64
}

// Generator renders TikZ plots from spool artifacts.
type Generator struct {
	logger *log.Entry
}

func NewGenerator() *Generator {
	return &Generator{
		logger: log.WithField("component", "timeseries"),
	}
}

type fieldSelector struct {
	dimension pool.Dimension
	metric    string
	perTenant bool
}

func parseYField(field string) (fieldSelector, error) {
	if field == "cost" {
		return fieldSelector{metric: "cost", perTenant: true}, nil
	}
	idx := strings.Index(field, "_")
	if idx <= 0 || idx == len(field)-1 {
		return fieldSelector{}, fmt.Errorf("invalid y-field %q", field)
	}
	dim, err := pool.ParseDimension(field[:idx])
	if err != nil {
		return fieldSelector{}, fmt.Errorf("invalid y-field %q: %w", field, err)
	}
	metric := field[idx+1:]
	switch metric {
	case "requested", "granted", "unmet":
		return fieldSelector{dimension: dim, metric: metric, perTenant: true}, nil
	case "jain", "utilization":
		return fieldSelector{dimension: dim, metric: metric}, nil
	}
	return fieldSelector{}, fmt.Errorf("invalid y-field %q: unknown metric %q", field, metric)
}

type point struct {
	tick  int
	value float64
}

// Generate renders the plot and wrapper documents for the given artifact.
func (g *Generator) Generate(artifact *database.SpoolArtifact, opts Options, plotFile string) (string, string, error) {
	if artifact == nil || artifact.Frames == nil {
		return "", "", fmt.Errorf("spool artifact carries no frames")
	}
	sel, err := parseYField(opts.YField)
	if err != nil {
		return "", "", err
	}
	mapping, ok := mappings.GetFieldMapping(sel.metric)
	if !ok {
		return "", "", fmt.Errorf("no field mapping for %q", sel.metric)
	}

	var series []plottemplate.PlotSeries
	if sel.perTenant {
		series, err = g.tenantSeries(artifact.Frames, sel, opts)
	} else {
		series, err = g.fairnessSeries(artifact.Frames, sel, opts)
	}
	if err != nil {
		return "", "", err
	}
	if len(series) == 0 {
		return "", "", fmt.Errorf("no data points for field %q", opts.YField)
	}

	yLabel := mapping.Label
	if sel.perTenant && sel.metric != "cost" {
		yLabel = fmt.Sprintf("%s %s", sel.dimension, mapping.Label)
	}
	data := plottemplate.PlotData{
		RunID:         artifact.Frames.RunID,
		RunName:       artifact.RunName,
		TraceChecksum: artifact.TraceChecksum,
		Ticks:         artifact.Frames.Ticks,
		TenantCount:   len(series),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		XLabel:        "tick",
		YLabel:        yLabel,
		XMin:          "0",
		XMax:          fmt.Sprintf("%d", artifact.Frames.Ticks),
		Series:        series,
	}
	yMin, yMax := mapping.YMin, mapping.YMax
	if opts.YMin != nil {
		yMin = opts.YMin
	}
	if opts.YMax != nil {
		yMax = opts.YMax
	}
	if yMin != nil {
		data.YMin = formatAxisValue(*yMin)
	}
	if yMax != nil {
		data.YMax = formatAxisValue(*yMax)
	}

	plotDoc, err := render("plot", plottemplate.PlotTemplate, data)
	if err != nil {
		return "", "", err
	}
	wrapperDoc, err := render("wrapper", wrappertemplate.WrapperTemplate, wrappertemplate.WrapperData{PlotFile: plotFile})
	if err != nil {
		return "", "", err
	}

	g.logger.WithFields(log.Fields{
		"run_id": artifact.Frames.RunID,
		"field":  opts.YField,
		"series": len(series),
	}).Info("Generated timeseries plot")
	return plotDoc, wrapperDoc, nil
}

func (g *Generator) tenantSeries(frames *results.RunFrames, sel fieldSelector, opts Options) ([]plottemplate.PlotSeries, error) {
	wanted := map[string]bool{}
	for _, t := range opts.Tenants {
		wanted[t] = true
	}

	byTenant := map[string][]point{}
	for _, row := range frames.Rows {
		if len(wanted) > 0 && !wanted[row.TenantID] {
			continue
		}
		var v float64
		switch sel.metric {
		case "requested":
			v = row.Requested[sel.dimension]
		case "granted":
			v = row.Granted[sel.dimension]
		case "unmet":
			v = row.Unmet[sel.dimension]
		case "cost":
			v = row.Cost
		}
		byTenant[row.TenantID] = append(byTenant[row.TenantID], point{tick: row.Tick, value: v})
	}
	for t := range wanted {
		if _, ok := byTenant[t]; !ok {
			return nil, fmt.Errorf("tenant %q not present in run %d", t, frames.RunID)
		}
	}

	ids := make([]string, 0, len(byTenant))
	for id := range byTenant {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	series := make([]plottemplate.PlotSeries, 0, len(ids))
	for i, id := range ids {
		series = append(series, plottemplate.PlotSeries{
			Name:        escapeLatex(id),
			Style:       mappings.GetSeriesStyle(i).ToTikzOptions(),
			Coordinates: coordinates(aggregate(byTenant[id], opts.Interval)),
		})
	}
	return series, nil
}

func (g *Generator) fairnessSeries(frames *results.RunFrames, sel fieldSelector, opts Options) ([]plottemplate.PlotSeries, error) {
	var pts []point
	for _, fp := range frames.Fairness {
		if fp.Dimension != sel.dimension {
			continue
		}
		v := fp.Jain
		if sel.metric == "utilization" {
			v = fp.Utilization
		}
		pts = append(pts, point{tick: fp.Tick, value: v})
	}
	if len(pts) == 0 {
		return nil, nil
	}
	return []plottemplate.PlotSeries{{
		Name:        escapeLatex(string(sel.dimension)),
		Style:       mappings.GetSeriesStyle(0).ToTikzOptions(),
		Coordinates: coordinates(aggregate(pts, opts.Interval)),
	}}, nil
}

// aggregate buckets points into interval-sized windows and keeps the mean,
// anchored at the bucket's first tick.
func aggregate(pts []point, interval int) []point {
	sort.Slice(pts, func(i, j int) bool { return pts[i].tick < pts[j].tick })
	if interval < 2 {
		return pts
	}
	var out []point
	for i := 0; i < len(pts); {
		bucket := pts[i].tick / interval
		sum := 0.0
		n := 0
		for i < len(pts) && pts[i].tick/interval == bucket {
			sum += pts[i].value
			n++
			i++
		}
		out = append(out, point{tick: bucket * interval, value: sum / float64(n)})
	}
	return out
}

func coordinates(pts []point) string {
	var b strings.Builder
	for _, p := range pts {
		fmt.Fprintf(&b, "    (%d, %.6f)\n", p.tick, p.value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAxisValue(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"&", "\\&",
		"%", "\\%",
		"#", "\\#",
	)
	return replacer.Replace(s)
}

func render(name, tmpl string, data interface{}) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return b.String(), nil
}
