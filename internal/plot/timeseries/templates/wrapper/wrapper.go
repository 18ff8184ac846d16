package wrapper

// WrapperTemplate produces a minimal standalone document around a generated
// plot so it can be compiled directly with pdflatex.
const WrapperTemplate = `\documentclass[border=5pt]{standalone}
\usepackage{tikz}
\usepackage{pgfplots}
\pgfplotsset{compat=1.18}

\begin{document}
\input{{"{"}}{{.PlotFile}}{{"}"}}
\end{document}
`

// WrapperData feeds WrapperTemplate.
type WrapperData struct {
	PlotFile string
}
