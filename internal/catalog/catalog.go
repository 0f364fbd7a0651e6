// Package catalog загружает справочник академии: навыки с русскими названиями,
// готовые тренировки, стандартные ачивки и QR-код филиала по умолчанию.
// Встроенный default.yaml можно заменить своим файлом (CATALOG_PATH).
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"volleylevel.by/academy-bot/internal/features/achievements"
)

// GeneralSkill: метка начисления без конкретного навыка.
const GeneralSkill = "general"

//go:embed default.yaml
var defaultYAML []byte

// Skill: навык из справочника.
type Skill struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// Line описывает строку тренировки, навык и XP за него.
type Line struct {
	SkillID string `yaml:"skill"`
	XP      int64  `yaml:"xp"`
}

// Preset: готовая тренировка из нескольких навыков.
type Preset struct {
	Name   string `yaml:"name"`
	Skills []Line `yaml:"skills"`
}

// TotalXP: сумма XP по строкам тренировки.
func (p Preset) TotalXP() int64 {
	var sum int64
	for _, l := range p.Skills {
		sum += l.XP
	}
	return sum
}

// QRSeed: QR-код, который создаётся при первом запуске.
type QRSeed struct {
	ID               string `yaml:"id"`
	Title            string `yaml:"title"`
	City             string `yaml:"city"`
	Branch           string `yaml:"branch"`
	XP               int64  `yaml:"xp"`
	SkillID          string `yaml:"skill"`
	IsTrainingPreset bool   `yaml:"is_training_preset"`
}

// Catalog: весь справочник.
type Catalog struct {
	Skills       []Skill                   `yaml:"skills"`
	Presets      []Preset                  `yaml:"presets"`
	Achievements []achievements.Definition `yaml:"achievements"`
	DefaultQR    *QRSeed                   `yaml:"default_qr"`

	labels map[string]string
}

// Load читает каталог из path или встроенный, если path пустой.
func Load(path string) (*Catalog, error) {
	data := defaultYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения каталога %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Parse разбирает YAML и проверяет ссылки между разделами.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("ошибка разбора каталога: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Skills) == 0 {
		return fmt.Errorf("в каталоге нет навыков")
	}
	c.labels = make(map[string]string, len(c.Skills))
	for _, s := range c.Skills {
		if s.ID == "" || s.ID == GeneralSkill {
			return fmt.Errorf("недопустимый id навыка %q", s.ID)
		}
		if _, dup := c.labels[s.ID]; dup {
			return fmt.Errorf("навык %s описан дважды", s.ID)
		}
		c.labels[s.ID] = s.Label
	}

	for _, p := range c.Presets {
		if strings.TrimSpace(p.Name) == "" || len(p.Skills) == 0 {
			return fmt.Errorf("тренировка %q без названия или без навыков", p.Name)
		}
		for _, l := range p.Skills {
			if !c.HasSkill(l.SkillID) || l.XP <= 0 {
				return fmt.Errorf("тренировка %q: некорректная строка %s/%d", p.Name, l.SkillID, l.XP)
			}
		}
	}

	ids := make(map[string]bool, len(c.Achievements))
	for _, a := range c.Achievements {
		if a.ID == "" || ids[a.ID] {
			return fmt.Errorf("ачивка без id или с повтором: %q", a.ID)
		}
		ids[a.ID] = true
		if err := a.Conditions.Validate(); err != nil {
			return fmt.Errorf("ачивка %s: %w", a.ID, err)
		}
	}

	if q := c.DefaultQR; q != nil {
		if q.ID == "" || q.XP <= 0 {
			return fmt.Errorf("QR-код по умолчанию без id или XP")
		}
		if q.SkillID != "" && !c.HasSkill(q.SkillID) {
			return fmt.Errorf("QR-код по умолчанию ссылается на неизвестный навык %s", q.SkillID)
		}
	}
	return nil
}

// HasSkill проверяет, есть ли навык в справочнике.
func (c *Catalog) HasSkill(id string) bool {
	_, ok := c.labels[id]
	return ok
}

// SkillIDs возвращает id навыков в порядке справочника.
func (c *Catalog) SkillIDs() []string {
	out := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		out = append(out, s.ID)
	}
	return out
}

// SkillLabel возвращает русское название навыка. Неизвестный id возвращается как есть.
func (c *Catalog) SkillLabel(id string) string {
	if id == "" || id == GeneralSkill {
		return "Общее"
	}
	if l, ok := c.labels[id]; ok && l != "" {
		return l
	}
	return id
}

// Preset ищет тренировку по названию без учёта регистра.
func (c *Catalog) Preset(name string) (Preset, bool) {
	name = strings.TrimSpace(name)
	for _, p := range c.Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}
