package metadata

// TableSummary is the public view of a TableDescriptor served by the API and CLI.
type TableSummary struct {
	Filename     string         `json:"filename"`
	Level        RequiredLevel  `json:"level"`
	SingleRow    bool           `json:"singleRow,omitempty"`
	KeyShape     string         `json:"keyShape"`
	Key          []string       `json:"key,omitempty"`
	Sequence     string         `json:"sequence,omitempty"`
	Indices      []string       `json:"indices,omitempty"`
	LatLonPairs  []LatLonPair   `json:"latLonPairs,omitempty"`
	Fields       []FieldSummary `json:"fields"`
	Rules        []Rule         `json:"rules,omitempty"`
	ReferencedBy []Reference    `json:"referencedBy,omitempty"`
}

// FieldSummary is the public view of a FieldDescriptor.
type FieldSummary struct {
	Name       string        `json:"name"`
	Type       SemanticType  `json:"type"`
	Level      RequiredLevel `json:"level"`
	Key        KeyRole       `json:"key,omitempty"`
	Indexed    bool          `json:"indexed,omitempty"`
	References *Reference    `json:"references,omitempty"`
	EndRange   *EndRange     `json:"endRange,omitempty"`
	Currency   string        `json:"currencyField,omitempty"`
	Bounds     NumberBounds  `json:"bounds,omitempty"`
	Default    string        `json:"default,omitempty"`
	Options    []string      `json:"options,omitempty"` // enum value names
}

// Summarize builds the view of one table.
func (s *Schema) Summarize(t *TableDescriptor) TableSummary {
	sum := TableSummary{
		Filename:    t.Filename,
		Level:       t.Level,
		SingleRow:   t.SingleRow,
		KeyShape:    t.KeyShape().String(),
		Sequence:    t.SequenceField,
		Indices:     t.SecondaryIndices,
		LatLonPairs: t.LatLonPairs,
		Rules:       t.Rules,
		Fields:      make([]FieldSummary, 0, len(t.Fields)),
	}
	switch t.KeyShape() {
	case KeyPrimary:
		sum.Key = []string{t.PrimaryKey}
	case KeyComposite:
		sum.Key = t.CompositeKey
	}

	for _, f := range t.Fields {
		fs := FieldSummary{
			Name:       f.Name,
			Type:       f.Type,
			Level:      f.Level,
			Indexed:    f.Indexed,
			References: f.ForeignKey,
			EndRange:   f.EndRange,
			Currency:   f.CurrencyField,
			Default:    f.Default,
		}
		if f.Role != RoleNone {
			fs.Key = f.Role
		}
		if f.Bounds != BoundsNone {
			fs.Bounds = f.Bounds
		}
		for _, v := range f.Enum {
			fs.Options = append(fs.Options, v.Name)
		}
		sum.Fields = append(sum.Fields, fs)
	}

	for _, fk := range s.foreignKeys {
		if fk.Parent.Table == t.Filename {
			sum.ReferencedBy = append(sum.ReferencedBy, fk.Child)
		}
	}
	return sum
}

// Summaries returns views of all tables in declaration order.
func (s *Schema) Summaries() []TableSummary {
	list := make([]TableSummary, 0, len(s.tables))
	for _, t := range s.tables {
		list = append(list, s.Summarize(t))
	}
	return list
}
