package service

import (
	"strings"
	"time"

	"github.com/osteele/liquid"
)

// narrativeTemplate renders the one-paragraph summary at the top of the
// card. Kept as a liquid template so wording can change without touching
// assembly logic.
const narrativeTemplate = `{{ name }} is {{ status }}.` +
	`{% if days_since_last >= 0 %} Last activity {{ days_since_last }} day{% if days_since_last != 1 %}s{% endif %} ago.{% endif %}` +
	`{% if top_signal != "" %} Needs attention: {{ top_signal }} ({{ top_signal_category }}).{% endif %}` +
	`{% if open_tasks == 1 %} 1 open task.{% elsif open_tasks > 1 %} {{ open_tasks }} open tasks.{% endif %}`

// narrative renders the summary for an assembled card. Rendering failures
// degrade to an empty narrative: the card must never fail over its prose.
type narrative struct {
	engine   *liquid.Engine
	template *liquid.Template
}

func newNarrative() (*narrative, error) {
	engine := liquid.NewEngine()
	tpl, err := engine.ParseString(narrativeTemplate)
	if err != nil {
		return nil, err
	}
	return &narrative{engine: engine, template: tpl}, nil
}

func (n *narrative) render(view ContactCardView, asOf time.Time) (string, error) {
	daysSinceLast := -1
	if view.LastActivityAt != nil {
		daysSinceLast = int(asOf.Sub(*view.LastActivityAt).Hours() / 24)
	}

	topSignal, topCategory := "", ""
	if len(view.Signals) > 0 {
		topSignal = strings.ReplaceAll(view.Signals[0].Subtype, "_", " ")
		topCategory = view.Signals[0].Category
	}

	openTasks := 0
	for _, t := range view.Tasks {
		if t.CompletedAt == nil {
			openTasks++
		}
	}

	out, err := n.template.RenderString(liquid.Bindings{
		"name":                view.Contact.Name,
		"status":              strings.ReplaceAll(view.Status, "_", " "),
		"days_since_last":     daysSinceLast,
		"top_signal":          topSignal,
		"top_signal_category": topCategory,
		"open_tasks":          openTasks,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
