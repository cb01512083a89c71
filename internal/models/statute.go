package models

// Statute is one excerpt in the law library corpus.
type Statute struct {
	Key      string `yaml:"key" json:"citation_key"`
	Title    string `yaml:"title" json:"title"`
	Citation string `yaml:"citation" json:"source_citation"`
	Text     string `yaml:"text" json:"raw_text"`
}

// Reference formats the statute for an evidence_source field.
func (s Statute) Reference() string {
	if s.Title == "" {
		return s.Citation
	}
	return s.Title + " (" + s.Citation + ")"
}
