// Package catalog defines the fixed set of gait-condition classes the
// classifier predicts over, together with their clinical descriptions.
//
// The order of the classes is part of the model contract: class index i in
// the logits vector corresponds to Names()[i]. Changing the order breaks
// compatibility with trained weights.
package catalog

import "fmt"

// classNames lists the catalog in model index order.
var classNames = []string{
	"Normal",
	"KOA_Early",
	"KOA_Mild",
	"KOA_Severe",
	"PD_Early",
	"PD_Mild",
	"PD_Severe",
	"Disabled_Assistive",
	"Disabled_NonAssistive",
}

// descriptions maps each class name to its clinical description.
var descriptions = map[string]string{
	"Normal":                "Normal symmetrical gait pattern with balanced stride length and cadence",
	"KOA_Early":             "Early knee osteoarthritis with mild gait modifications and reduced knee flexion",
	"KOA_Mild":              "Mild knee osteoarthritis showing limping gait and asymmetric weight bearing",
	"KOA_Severe":            "Severe knee osteoarthritis with significant antalgic gait and reduced mobility",
	"PD_Early":              "Early Parkinson's disease showing slight shuffling gait and reduced arm swing",
	"PD_Mild":               "Mild Parkinson's disease with festinating gait and postural instability",
	"PD_Severe":             "Severe Parkinson's disease showing freezing of gait and significant bradykinesia",
	"Disabled_Assistive":    "Disabled gait using assistive devices with modified weight distribution",
	"Disabled_NonAssistive": "Disabled gait without assistive devices showing compensatory movements",
}

// indexByName is the reverse of classNames.
var indexByName = func() map[string]int {
	m := make(map[string]int, len(classNames))
	for i, name := range classNames {
		m[name] = i
	}
	return m
}()

// Count returns the number of classes in the catalog.
func Count() int {
	return len(classNames)
}

// Names returns the class names in model index order. The returned slice is
// a copy; callers may not mutate the catalog.
func Names() []string {
	out := make([]string, len(classNames))
	copy(out, classNames)
	return out
}

// Name returns the class name for a model output index.
func Name(index int) (string, error) {
	if index < 0 || index >= len(classNames) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", index, len(classNames))
	}
	return classNames[index], nil
}

// Index returns the model output index for a class name.
func Index(name string) (int, error) {
	idx, ok := indexByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown class name %q", name)
	}
	return idx, nil
}

// Description returns the clinical description for a class name.
func Description(name string) (string, error) {
	d, ok := descriptions[name]
	if !ok {
		return "", fmt.Errorf("unknown class name %q", name)
	}
	return d, nil
}

// Descriptions returns a copy of the full name -> description mapping.
func Descriptions() map[string]string {
	out := make(map[string]string, len(descriptions))
	for k, v := range descriptions {
		out[k] = v
	}
	return out
}
