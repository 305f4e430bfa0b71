// Package agents implements the four pipeline stage executors. Each executor
// builds a role-specific prompt from the case context and the outputs of the
// stages before it, calls the inference gateway once, and decodes the reply
// into its structured payload. A reply missing a required field fails the
// stage; nothing is ever defaulted or invented.
package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/inference"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
)

// NewExecutors returns the four stage executors in pipeline order, all backed
// by the same completer.
func NewExecutors(completer inference.Completer) []pipeline.Executor {
	return []pipeline.Executor{
		NewResearcher(completer),
		NewAnalyst(completer),
		NewStrategist(completer),
		NewDrafter(completer),
	}
}

// caseContextBlock renders the case context as prompt text. Evidence entries
// include the OCR preview when present so the model sees document content,
// not just file names.
func caseContextBlock(cc pipeline.CaseContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Case Type: %s\n", cc.CaseType)
	fmt.Fprintf(&b, "Jurisdiction: %s\n", cc.Jurisdiction)
	fmt.Fprintf(&b, "Case Description:\n%s\n", cc.Description)

	if len(cc.Evidence) > 0 {
		fmt.Fprintf(&b, "\nUploaded Evidence (%d items):\n", len(cc.Evidence))
		for i, ev := range cc.Evidence {
			fmt.Fprintf(&b, "%d. %s (%s)", i+1, ev.Name, ev.Type)
			if ev.Description != "" {
				fmt.Fprintf(&b, " - %s", ev.Description)
			}
			if len(ev.Tags) > 0 {
				fmt.Fprintf(&b, " [tags: %s]", strings.Join(ev.Tags, ", "))
			}
			b.WriteString("\n")
			if ev.OCRPreview != "" {
				fmt.Fprintf(&b, "   Extracted text: %s\n", ev.OCRPreview)
			}
		}
	}

	if cc.PriorAnalysis != "" {
		fmt.Fprintf(&b, "\nPrior Analysis:\n%s\n", cc.PriorAnalysis)
	}

	return b.String()
}

// priorSection renders an earlier stage's payload as a labelled JSON block
// for inclusion in a later stage's prompt.
func priorSection(label string, payload pipeline.StagePayload) string {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		// Payloads are plain structs; marshalling cannot realistically fail.
		data = []byte("{}")
	}
	return fmt.Sprintf("\n%s:\n%s\n", label, string(data))
}

// findPrior returns the payload of the given role from the accumulated stage
// results, or an error if that stage has not completed. Executors depend on
// the orchestrator's ordering guarantee, so a missing prior stage is a
// programming error worth failing loudly on.
func findPrior(prior []pipeline.StageResult, role pipeline.Role) (pipeline.StagePayload, error) {
	for _, res := range prior {
		if res.Role == role {
			return res.Payload, nil
		}
	}
	return nil, fmt.Errorf("missing prior %s stage result", role)
}

// requireFields returns an error naming the first empty value in the ordered
// field list. Stage outputs with required fields absent must fail the stage.
func requireFields(fields []requiredField) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("model output missing required field %q", f.name)
		}
	}
	return nil
}

type requiredField struct {
	name  string
	value string
}
