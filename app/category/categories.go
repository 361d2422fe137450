package category

// Category is one row of the fixed slug-to-labels table. Call sites never
// assemble the three fields independently.
type Category struct {
	Slug    string
	LabelEn string
	LabelRu string
}

var table = map[string]Category{
	"landmark":     {Slug: "landmark", LabelEn: "Landmark", LabelRu: "Достопримечательность"},
	"architecture": {Slug: "architecture", LabelEn: "Architecture", LabelRu: "Архитектура"},
	"religious":    {Slug: "religious", LabelEn: "Religious site", LabelRu: "Храм"},
	"castle":       {Slug: "castle", LabelEn: "Castle", LabelRu: "Замок"},
	"museum":       {Slug: "museum", LabelEn: "Museum", LabelRu: "Музей"},
	"library":      {Slug: "library", LabelEn: "Library", LabelRu: "Библиотека"},
	"university":   {Slug: "university", LabelEn: "University", LabelRu: "Университет"},
	"hotel":        {Slug: "hotel", LabelEn: "Hotel", LabelRu: "Отель"},
	"cafe":         {Slug: "cafe", LabelEn: "Cafe", LabelRu: "Кафе"},
	"restaurant":   {Slug: "restaurant", LabelEn: "Restaurant", LabelRu: "Ресторан"},
	"cemetery":     {Slug: "cemetery", LabelEn: "Cemetery", LabelRu: "Кладбище"},
}

// Lookup resolves a slug against the fixed table.
func Lookup(slug string) (Category, bool) {
	c, ok := table[slug]
	return c, ok
}
