package http

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
)

// ResultView is what the result area shows after a submit.
type ResultView struct {
	Headline string
	// Confidence is empty when the model has no probabilities; the line is then omitted.
	Confidence string
	Features   []FeatureView
}

type FeatureView struct {
	Name  string
	Value string
}

// Renderer formats predictions for display using locale-aware number formatting.
type Renderer struct {
	printer *message.Printer
}

// NewRenderer falls back to English for an unparseable locale.
func NewRenderer(locale string) *Renderer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Renderer{printer: message.NewPrinter(tag)}
}

// RenderResult builds the view for p. The echoed record uses the widgets'
// own formatting, without locale grouping, so it reads back as entered.
func (r *Renderer) RenderResult(p *ml.Prediction, schema *ml.Schema) *ResultView {
	view := &ResultView{
		Headline: r.printer.Sprintf("Predicted Failure Type: %s", p.Label),
	}
	if p.HasConfidence() {
		view.Confidence = r.printer.Sprintf("Confidence: %.2f%%", *p.Confidence)
	}

	view.Features = make([]FeatureView, p.Record.Len())
	for i, v := range p.Record.Values {
		field := ml.Field{Kind: ml.FieldFloat}
		if i < len(schema.Fields) {
			field = schema.Fields[i]
		}
		fv := FeatureView{Name: field.Label, Value: field.Format(v)}
		if i < len(p.Record.Names) {
			fv.Name = p.Record.Names[i]
		}
		view.Features[i] = fv
	}
	return view
}
