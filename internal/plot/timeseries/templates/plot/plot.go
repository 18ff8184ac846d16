package plot

// PlotTemplate renders a standalone pgfplots axis that can be \input into a
// LaTeX document or compiled through the generated wrapper.
const PlotTemplate = `% Generated by tenant-sim
% Run:          {{.RunID}}{{if .RunName}} ({{.RunName}}){{end}}
% Trace:        {{.TraceChecksum}}
% Ticks:        {{.Ticks}}
% Tenants:      {{.TenantCount}}
% Generated at: {{.GeneratedAt}}
\begin{tikzpicture}
\begin{axis}[
    width=\linewidth,
    height=7cm,
    xlabel={{"{"}}{{.XLabel}}{{"}"}},
    ylabel={{"{"}}{{.YLabel}}{{"}"}},
    xmin={{.XMin}},
    xmax={{.XMax}},
{{- if .YMin}}
    ymin={{.YMin}},
{{- end}}
{{- if .YMax}}
    ymax={{.YMax}},
{{- end}}
    grid=major,
    grid style={dashed,gray!30},
    legend style={
        at={(0.5,-0.2)},
        anchor=north,
        legend columns=3,
        font=\small,
    },
    tick label style={font=\small},
    label style={font=\small},
]
{{range .Series}}
\addplot[{{.Style}}] coordinates {
{{.Coordinates}}
};
\addlegendentry{{"{"}}{{.Name}}{{"}"}}
{{end}}
\end{axis}
\end{tikzpicture}
`

// PlotSeries is one line on the axis.
type PlotSeries struct {
	Name        string
	Style       string
	Coordinates string
}

// PlotData feeds PlotTemplate.
type PlotData struct {
	RunID         int
	RunName       string
	TraceChecksum string
	Ticks         int
	TenantCount   int
	GeneratedAt   string
	XLabel        string
	YLabel        string
	XMin          string
	XMax          string
	YMin          string
	YMax          string
	Series        []PlotSeries
}
