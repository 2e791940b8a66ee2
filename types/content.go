package types

// PortfolioContent holds the static copy rendered on the portfolio page.
type PortfolioContent struct {
	Owner    string         `yaml:"owner" json:"owner"`
	Hero     HeroSection    `yaml:"hero" json:"hero"`
	About    AboutSection   `yaml:"about" json:"about"`
	Projects []Project      `yaml:"projects" json:"projects"`
	Skills   []SkillGroup   `yaml:"skills" json:"skills"`
	Contact  ContactSection `yaml:"contact" json:"contact"`
}

type HeroSection struct {
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
}

type AboutSection struct {
	Paragraphs []string `yaml:"paragraphs" json:"paragraphs"`
}

type Project struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Tags        []string `yaml:"tags" json:"tags"`
	URL         string   `yaml:"url" json:"url,omitempty"`
}

type SkillGroup struct {
	Category string   `yaml:"category" json:"category"`
	Items    []string `yaml:"items" json:"items"`
}

type ContactSection struct {
	Email string       `yaml:"email" json:"email"`
	Links []SocialLink `yaml:"links" json:"links"`
}

type SocialLink struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}
