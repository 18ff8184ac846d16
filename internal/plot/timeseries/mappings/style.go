package mappings

type PlotStyle struct {
	Color       string
	LineStyle   string
	LineWidth   string
	Mark        string
	MarkOptions string
}

var SeriesStyles = []PlotStyle{
	{Color: "red", LineStyle: "dotted", LineWidth: "thick", Mark: "triangle*", MarkOptions: "scale=0.5,fill=red"},
	{Color: "blue", LineStyle: "densely dashed", LineWidth: "thick", Mark: "square", MarkOptions: "scale=0.3"},
	{Color: "green!70!black", LineStyle: "densely dotted", LineWidth: "thick", Mark: "*", MarkOptions: "scale=0.3,fill=green!70!black"},
	{Color: "orange", LineStyle: "dashdotted", LineWidth: "thick", Mark: "diamond*", MarkOptions: "scale=0.5,fill=orange"},
	{Color: "purple", LineStyle: "loosely dotted", LineWidth: "thick", Mark: "pentagon*", MarkOptions: "scale=0.5,fill=purple"},
	{Color: "brown", LineStyle: "densely dashed", LineWidth: "thick", Mark: "x", MarkOptions: "scale=0.5"},
	{Color: "black", LineStyle: "densely dotted", LineWidth: "thick", Mark: "o", MarkOptions: "scale=0.3"},
	{Color: "cyan", LineStyle: "solid", LineWidth: "thick", Mark: "pentagon", MarkOptions: "scale=0.5"},
	{Color: "magenta", LineStyle: "solid", LineWidth: "thick", Mark: "star", MarkOptions: "scale=0.5,fill=magenta"},
	{Color: "teal", LineStyle: "solid", LineWidth: "thick", Mark: "*", MarkOptions: "scale=0.5,fill=teal"},
	{Color: "violet", LineStyle: "dashed", LineWidth: "thick", Mark: "diamond*", MarkOptions: "scale=0.5,fill=violet"},
	{Color: "olive", LineStyle: "dashed", LineWidth: "thick", Mark: "pentagon*", MarkOptions: "scale=0.5,fill=olive"},
}

func GetSeriesStyle(index int) PlotStyle {
	if index < 0 {
		index = 0
	}
	return SeriesStyles[index%len(SeriesStyles)]
}

func (ps PlotStyle) ToTikzOptions() string {
	options := ps.Color
	if ps.LineStyle != "" {
		options += "," + ps.LineStyle
	}
	if ps.LineWidth != "" {
		options += "," + ps.LineWidth
	}
	if ps.Mark != "none" && ps.Mark != "" {
		options += ",mark=" + ps.Mark
		if ps.MarkOptions != "" {
			options += ",mark options={" + ps.MarkOptions + "}"
		}
	}
	return options
}

// FieldMapping describes how a plottable field is labeled and bounded.
type FieldMapping struct {
	Label string
	YMin  *float64
	YMax  *float64
}

var zero = 0.0
var one = 1.0

var fieldMappings = map[string]FieldMapping{
	"requested":   {Label: "requested amount", YMin: &zero},
	"granted":     {Label: "granted amount", YMin: &zero},
	"unmet":       {Label: "unmet demand", YMin: &zero},
	"cost":        {Label: "cost per tick", YMin: &zero},
	"jain":        {Label: "Jain fairness index", YMin: &zero, YMax: &one},
	"utilization": {Label: "pool utilization", YMin: &zero},
}

// GetFieldMapping resolves the metric part of a y-field, e.g. "granted" for
// "cpu_granted".
func GetFieldMapping(metric string) (FieldMapping, bool) {
	m, ok := fieldMappings[metric]
	return m, ok
}
