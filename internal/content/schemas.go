// Package content declares the site's content types.
package content

import "github.com/duet-robotics/drc-backend/internal/collection/domain"

const (
	HeroSlides   = "hero-slides"
	About        = "about"
	Projects     = "projects"
	Events       = "events"
	Sponsors     = "sponsors"
	Committee    = "committee"
	Testimonials = "testimonials"
	Blog         = "blog"
	FAQ          = "faq"
	Timeline     = "timeline"
	Stats        = "stats"
	FocusAreas   = "focus-areas"
	TechStack    = "tech-stack"
	Gallery      = "gallery"
	Research     = "research"
)

var (
	ProjectCategories = []string{"COMBAT", "AI", "AERO", "AUTO"}
	ProjectStatuses   = []string{"ACTIVE", "TESTING", "MAINTENANCE", "UNKNOWN"}
	SponsorTiers      = []string{"PLATINUM", "GOLD", "SILVER", "PARTNER"}
	BlogCategories    = []string{"Robotics", "Artificial Intelligence", "Achievements", "Tutorials", "Events", "Research"}
	ResearchStatuses  = []string{"ONGOING", "COMPLETED", "PROPOSED"}
)

var byOrder = []domain.SortKey{{Path: "order"}}

func featuredFirst(rest ...domain.SortKey) []domain.SortKey {
	return append([]domain.SortKey{{Path: "featured", Desc: true}, {Path: "order"}}, rest...)
}

func button(name, text, link string) domain.Field {
	return domain.Field{
		Name: name,
		Kind: domain.KindObject,
		Fields: []domain.Field{
			{Name: "text", Kind: domain.KindString, Default: text, Rules: "max=50"},
			{Name: "link", Kind: domain.KindString, Default: link},
		},
		Default: map[string]any{"text": text, "link": link},
	}
}

func heroSlides() *domain.Schema {
	return &domain.Schema{
		Name:          HeroSlides,
		Label:         "Hero slides",
		ImageKey:      "image",
		ImageRequired: true,
		DisplayField:  "title",
		Fields: []domain.Field{
			{Name: "title", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "subtitle", Kind: domain.KindString, Rules: "max=200"},
			{Name: "description", Kind: domain.KindString, Required: true, Rules: "max=500"},
			button("primaryButton", "Explore Projects", "#projects"),
			button("secondaryButton", "Join Club", "#join"),
			{Name: "autoSlideInterval", Kind: domain.KindInt, Default: float64(6000), Rules: "min=1000"},
		},
		Sort: byOrder,
	}
}

func about() *domain.Schema {
	return &domain.Schema{
		Name:          About,
		Label:         "About",
		ImageKey:      "image",
		ImageRequired: true,
		DisplayField:  "title",
		Fields: []domain.Field{
			{Name: "title", Kind: domain.KindString, Default: "About Us"},
			{Name: "description", Kind: domain.KindHTML},
			{Name: "paragraphs", Kind: domain.KindStringList},
			{Name: "buttonText", Kind: domain.KindString, Default: "Learn More"},
			{Name: "buttonLink", Kind: domain.KindString, Default: "#"},
		},
		Sort: byOrder,
	}
}

func projects() *domain.Schema {
	return &domain.Schema{
		Name:         Projects,
		Label:        "Projects",
		ImageKey:     "image",
		DisplayField: "title",
		Fields: []domain.Field{
			{Name: "code", Kind: domain.KindString, Required: true, Unique: true, Case: domain.CaseUpper, Rules: "max=20"},
			{Name: "title", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "tag", Kind: domain.KindString, Required: true, Rules: "max=50"},
			{Name: "category", Kind: domain.KindString, Required: true, Enum: ProjectCategories, Default: "COMBAT"},
			{Name: "status", Kind: domain.KindString, Enum: ProjectStatuses, Default: "ACTIVE"},
			{Name: "latency", Kind: domain.KindString, Default: "0.00ms"},
			{Name: "description", Kind: domain.KindString, Rules: "max=1000"},
			{Name: "technologies", Kind: domain.KindStringList},
			{Name: "team", Kind: domain.KindStringList},
			{Name: "github", Kind: domain.KindString},
			{Name: "demo", Kind: domain.KindString},
			{Name: "featured", Kind: domain.KindBool, Default: false},
		},
		Sort: featuredFirst(domain.SortKey{Path: "title"}),
	}
}

func events() *domain.Schema {
	return &domain.Schema{
		Name:         Events,
		Label:        "Events",
		ImageKey:     "image",
		DisplayField: "title",
		Fields: []domain.Field{
			{Name: "title", Kind: domain.KindString, Required: true, Rules: "max=200"},
			{Name: "slug", Kind: domain.KindString, Required: true, Unique: true, Case: domain.CaseLower},
			{Name: "description", Kind: domain.KindString, Required: true, Rules: "max=2000"},
			{Name: "date", Kind: domain.KindObject, Required: true, Fields: []domain.Field{
				{Name: "day", Kind: domain.KindString, Required: true},
				{Name: "month", Kind: domain.KindString, Required: true},
				{Name: "year", Kind: domain.KindString},
				{Name: "fullDate", Kind: domain.KindTime},
			}},
			{Name: "time", Kind: domain.KindString},
			{Name: "location", Kind: domain.KindString},
			{Name: "tags", Kind: domain.KindStringList},
			{Name: "registrationLink", Kind: domain.KindString},
			{Name: "featured", Kind: domain.KindBool, Default: false},
		},
		Sort:      featuredFirst(domain.SortKey{Path: "date.fullDate", Desc: true}),
		Normalize: normalizeEvent,
	}
}

func sponsors() *domain.Schema {
	return &domain.Schema{
		Name:         Sponsors,
		Label:        "Sponsors",
		ImageKey:     "logo",
		DisplayField: "name",
		Fields: []domain.Field{
			{Name: "name", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "website", Kind: domain.KindString, Rules: "url"},
			{Name: "category", Kind: domain.KindString, Required: true, Enum: SponsorTiers, Default: "PARTNER"},
			{Name: "description", Kind: domain.KindString, Rules: "max=500"},
		},
		Sort: []domain.SortKey{{Path: "category"}, {Path: "order"}, {Path: "name"}},
	}
}

func committee() *domain.Schema {
	return &domain.Schema{
		Name:         Committee,
		Label:        "Committee",
		ImageKey:     "image",
		DisplayField: "name",
		Fields: []domain.Field{
			{Name: "name", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "role", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "department", Kind: domain.KindString},
			{Name: "session", Kind: domain.KindString},
			{Name: "email", Kind: domain.KindString, Case: domain.CaseLower, Rules: "email"},
			{Name: "socialLinks", Kind: domain.KindObject, Fields: []domain.Field{
				{Name: "linkedin", Kind: domain.KindString, Default: ""},
				{Name: "github", Kind: domain.KindString, Default: ""},
				{Name: "facebook", Kind: domain.KindString, Default: ""},
			}, Default: map[string]any{"linkedin": "", "github": "", "facebook": ""}},
			{Name: "isExecutive", Kind: domain.KindBool, Default: false},
		},
		Sort: []domain.SortKey{{Path: "isExecutive", Desc: true}, {Path: "order"}, {Path: "name"}},
	}
}

func testimonials() *domain.Schema {
	return &domain.Schema{
		Name:         Testimonials,
		Label:        "Testimonials",
		ImageKey:     "avatar",
		DisplayField: "name",
		Fields: []domain.Field{
			{Name: "name", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "role", Kind: domain.KindString, Required: true, Rules: "max=150"},
			{Name: "text", Kind: domain.KindString, Required: true, Rules: "max=1000"},
			{Name: "rating", Kind: domain.KindInt, Default: float64(5), Rules: "min=1,max=5"},
			{Name: "featured", Kind: domain.KindBool, Default: false},
		},
		Sort: featuredFirst(),
	}
}

func blog() *domain.Schema {
	return &domain.Schema{
		Name:         Blog,
		Label:        "Blog posts",
		ImageKey:     "image",
		DisplayField: "title",
		Fields: []domain.Field{
			{Name: "title", Kind: domain.KindString, Required: true, Rules: "max=300"},
			{Name: "slug", Kind: domain.KindString, Required: true, Unique: true, Case: domain.CaseLower},
			{Name: "category", Kind: domain.KindString, Required: true, Enum: BlogCategories},
			{Name: "excerpt", Kind: domain.KindString, Required: true, Rules: "max=500"},
			{Name: "content", Kind: domain.KindHTML, Required: true},
			{Name: "author", Kind: domain.KindString, Required: true},
			{Name: "authorImage", Kind: domain.KindString},
			{Name: "authorRole", Kind: domain.KindString},
			{Name: "tags", Kind: domain.KindStringList, Case: domain.CaseLower},
			{Name: "readTime", Kind: domain.KindInt, Rules: "min=1"},
			{Name: "views", Kind: domain.KindInt, Default: float64(0)},
			{Name: "featured", Kind: domain.KindBool, Default: false},
			{Name: "publishedAt", Kind: domain.KindTime},
			{Name: "metaTitle", Kind: domain.KindString},
			{Name: "metaDescription", Kind: domain.KindString},
		},
		Sort:      featuredFirst(domain.SortKey{Path: "publishedAt", Desc: true}),
		Normalize: normalizeBlog,
	}
}

func faq() *domain.Schema {
	return &domain.Schema{
		Name:  FAQ,
		Label: "FAQ",
		Fields: []domain.Field{
			{Name: "question", Kind: domain.KindString, Required: true, Rules: "max=300"},
			{Name: "answer", Kind: domain.KindString, Required: true, Rules: "max=2000"},
			{Name: "category", Kind: domain.KindString, Default: "General"},
		},
		Sort: byOrder,
	}
}

func timeline() *domain.Schema {
	return &domain.Schema{
		Name:         Timeline,
		Label:        "Timeline",
		ImageKey:     "image",
		DisplayField: "title",
		Fields: []domain.Field{
			{Name: "year", Kind: domain.KindString, Required: true},
			{Name: "title", Kind: domain.KindString, Required: true, Rules: "max=200"},
			{Name: "description", Kind: domain.KindString, Required: true, Rules: "max=1000"},
			{Name: "achievements", Kind: domain.KindStringList},
		},
		Sort: byOrder,
	}
}

func stats() *domain.Schema {
	return &domain.Schema{
		Name:  Stats,
		Label: "Stats",
		Fields: []domain.Field{
			{Name: "label", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "value", Kind: domain.KindString, Required: true},
			{Name: "suffix", Kind: domain.KindString, Default: ""},
			{Name: "icon", Kind: domain.KindString},
		},
		Sort: byOrder,
	}
}

func focusAreas() *domain.Schema {
	return &domain.Schema{
		Name:  FocusAreas,
		Label: "Focus areas",
		Fields: []domain.Field{
			{Name: "title", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "description", Kind: domain.KindString, Required: true, Rules: "max=500"},
			{Name: "icon", Kind: domain.KindString, Required: true},
			{Name: "color", Kind: domain.KindString, Default: "#e63946", Rules: "hexcolor"},
		},
		Sort: byOrder,
	}
}

func techStack() *domain.Schema {
	return &domain.Schema{
		Name:  TechStack,
		Label: "Tech stack",
		Fields: []domain.Field{
			{Name: "category", Kind: domain.KindString, Required: true, Rules: "max=100"},
			{Name: "items", Kind: domain.KindObjectList, Fields: []domain.Field{
				{Name: "name", Kind: domain.KindString, Required: true},
				{Name: "use", Kind: domain.KindString, Required: true},
				{Name: "icon", Kind: domain.KindString, Required: true},
				{Name: "proficiency", Kind: domain.KindInt, Default: float64(0), Rules: "min=0,max=100"},
			}},
		},
		Sort: byOrder,
	}
}

func gallery() *domain.Schema {
	return &domain.Schema{
		Name:          Gallery,
		Label:         "Gallery",
		ImageKey:      "image",
		ImageRequired: true,
		DisplayField:  "title",
		Fields: []domain.Field{
			{Name: "title", Kind: domain.KindString, Required: true, Rules: "max=200"},
			{Name: "description", Kind: domain.KindString, Rules: "max=1000"},
			{Name: "category", Kind: domain.KindString, Default: "General"},
			{Name: "tags", Kind: domain.KindStringList, Case: domain.CaseLower},
			{Name: "date", Kind: domain.KindTime},
			{Name: "featured", Kind: domain.KindBool, Default: false},
		},
		Sort: featuredFirst(),
	}
}

func research() *domain.Schema {
	return &domain.Schema{
		Name:  Research,
		Label: "Research",
		Fields: []domain.Field{
			{Name: "title", Kind: domain.KindString, Required: true, Rules: "max=200"},
			{Name: "technology", Kind: domain.KindString, Required: true},
			{Name: "description", Kind: domain.KindString, Required: true, Rules: "max=2000"},
			{Name: "icon", Kind: domain.KindString},
			{Name: "category", Kind: domain.KindString},
			{Name: "researchers", Kind: domain.KindStringList},
			{Name: "publications", Kind: domain.KindStringList},
			{Name: "status", Kind: domain.KindString, Enum: ResearchStatuses, Default: "ONGOING"},
		},
		Sort: byOrder,
	}
}

// Schemas returns fresh copies of every content type, in site order.
func Schemas() []*domain.Schema {
	return []*domain.Schema{
		heroSlides(), about(), projects(), events(), sponsors(), committee(),
		testimonials(), blog(), faq(), timeline(), stats(), focusAreas(),
		techStack(), gallery(), research(),
	}
}

func NewRegistry() *domain.Registry {
	return domain.NewRegistry(Schemas()...)
}
