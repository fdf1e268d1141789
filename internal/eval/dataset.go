package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// Graded relevance values carried by the on-disk dataset format. The three
// levels map onto the 0/1/2 gain scale the metrics consume.
const (
	RelevanceNone     Relevance = 0
	RelevanceSomewhat Relevance = 1
	RelevanceHigh     Relevance = 2
)

// datasetFile is the on-disk evaluation dataset shape: a flat list of
// (query, doc_id, relevance) examples under a name and version.
type datasetFile struct {
	Name     string        `json:"name"`
	Version  string        `json:"version"`
	Examples []exampleFile `json:"examples"`
}

type exampleFile struct {
	Query     string `json:"query"`
	DocID     string `json:"doc_id"`
	Relevance string `json:"relevance"`
}

func parseRelevance(s string) (Relevance, error) {
	switch s {
	case "not_relevant":
		return RelevanceNone, nil
	case "somewhat_relevant":
		return RelevanceSomewhat, nil
	case "highly_relevant":
		return RelevanceHigh, nil
	default:
		return 0, fmt.Errorf("unknown relevance value %q", s)
	}
}

// ParseDataset decodes the JSON evaluation dataset format, grouping the flat
// example list by query into LabeledExamples. Unknown relevance values and
// structurally invalid JSON reject the whole dataset.
func ParseDataset(r io.Reader) (EvaluationDataset, error) {
	var raw datasetFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return EvaluationDataset{}, docerrors.Validation("invalid evaluation dataset", err)
	}
	if len(raw.Examples) == 0 {
		return EvaluationDataset{}, docerrors.Validation("evaluation dataset has no examples", nil)
	}

	byQuery := make(map[string]*LabeledExample)
	var order []string
	for i, ex := range raw.Examples {
		if ex.Query == "" || ex.DocID == "" {
			return EvaluationDataset{}, docerrors.Validation(
				fmt.Sprintf("invalid evaluation dataset: example %d is missing query or doc_id", i), nil)
		}
		rating, err := parseRelevance(ex.Relevance)
		if err != nil {
			return EvaluationDataset{}, docerrors.Validation("invalid evaluation dataset", err)
		}
		le, ok := byQuery[ex.Query]
		if !ok {
			le = &LabeledExample{Query: ex.Query, Ratings: make(map[string]Relevance)}
			byQuery[ex.Query] = le
			order = append(order, ex.Query)
		}
		le.Ratings[ex.DocID] = rating
		if rating > 0 {
			le.TotalRelevant++
		}
	}

	ds := EvaluationDataset{Name: raw.Name, Version: raw.Version}
	for _, q := range order {
		ds.Examples = append(ds.Examples, *byQuery[q])
	}
	return ds, nil
}

// LoadDataset reads and parses an evaluation dataset file.
func LoadDataset(path string) (EvaluationDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return EvaluationDataset{}, docerrors.Storage("failed to open evaluation dataset", err)
	}
	defer f.Close()
	return ParseDataset(f)
}
