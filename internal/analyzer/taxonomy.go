package analyzer

import "strings"

// Bloom's revised taxonomy levels, lowest to highest.
const (
	BloomsRemember   = "Remember"
	BloomsUnderstand = "Understand"
	BloomsApply      = "Apply"
	BloomsAnalyze    = "Analyze"
	BloomsEvaluate   = "Evaluate"
	BloomsCreate     = "Create"
)

// BloomsLevels lists the levels in ascending order.
var BloomsLevels = []string{
	BloomsRemember, BloomsUnderstand, BloomsApply,
	BloomsAnalyze, BloomsEvaluate, BloomsCreate,
}

const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Subtopic is a chapter-level area recognised by keywords.
type Subtopic struct {
	Name     string
	Keywords []string
}

// Topic is a subject area with its subtopics.
type Topic struct {
	Name      string
	Keywords  []string
	Subtopics []Subtopic
}

var seedTopics = []Topic{
	{
		Name:     "Mathematics",
		Keywords: []string{"+", " - ", "sum", "product", "equation", "solve", "integer", "number"},
		Subtopics: []Subtopic{
			{Name: "Arithmetic", Keywords: []string{"+", " - ", "sum", "product", "divide", "multiply", "what is"}},
			{Name: "Algebra", Keywords: []string{"equation", "solve for", "polynomial", "quadratic", "variable", "x ="}},
			{Name: "Calculus", Keywords: []string{"derivative", "integral", "limit", "differentiate", "integrate"}},
			{Name: "Geometry", Keywords: []string{"triangle", "circle", "angle", "area", "perimeter", "radius"}},
			{Name: "Probability", Keywords: []string{"probability", "dice", "coin", "random", "expected value"}},
		},
	},
	{
		Name:     "Physics",
		Keywords: []string{"velocity", "force", "energy", "mass", "current", "wave"},
		Subtopics: []Subtopic{
			{Name: "Kinematics", Keywords: []string{"velocity", "acceleration", "displacement", "speed", "projectile"}},
			{Name: "Laws of Motion", Keywords: []string{"force", "newton", "friction", "momentum", "inertia"}},
			{Name: "Work, Energy and Power", Keywords: []string{"work done", "kinetic energy", "potential energy", "power", "energy"}},
			{Name: "Electricity", Keywords: []string{"current", "voltage", "resistance", "ohm", "circuit", "charge"}},
			{Name: "Waves and Optics", Keywords: []string{"wave", "frequency", "wavelength", "lens", "refraction", "mirror"}},
		},
	},
	{
		Name:     "Chemistry",
		Keywords: []string{"mole", "reaction", "atom", "compound", "acid", "bond"},
		Subtopics: []Subtopic{
			{Name: "Atomic Structure", Keywords: []string{"electron", "proton", "neutron", "orbital", "atomic number"}},
			{Name: "Chemical Bonding", Keywords: []string{"bond", "covalent", "ionic", "hybridization", "valence"}},
			{Name: "Stoichiometry", Keywords: []string{"mole", "molar mass", "limiting reagent", "stoichiometr"}},
			{Name: "Acids and Bases", Keywords: []string{"acid", "base", " ph ", "buffer", "titration"}},
			{Name: "Organic Chemistry", Keywords: []string{"alkane", "alkene", "benzene", "isomer", "functional group"}},
		},
	},
	{
		Name:     "Biology",
		Keywords: []string{"cell", "gene", "organism", "enzyme", "protein", "species"},
		Subtopics: []Subtopic{
			{Name: "Cell Biology", Keywords: []string{"cell", "mitochondria", "nucleus", "membrane", "organelle"}},
			{Name: "Genetics", Keywords: []string{"gene", "dna", "allele", "chromosome", "heredity"}},
			{Name: "Human Physiology", Keywords: []string{"heart", "blood", "kidney", "digestion", "hormone"}},
			{Name: "Ecology", Keywords: []string{"ecosystem", "food chain", "population", "habitat", "species"}},
		},
	},
}

// bloomsVerbs maps leading question verbs to a level. Checked highest
// level first so "design and explain" lands on Create.
var bloomsVerbs = []struct {
	level string
	verbs []string
}{
	{BloomsCreate, []string{"design", "construct", "formulate", "propose", "devise", "compose"}},
	{BloomsEvaluate, []string{"evaluate", "justify", "assess", "critique", "judge", "defend"}},
	{BloomsAnalyze, []string{"analyze", "analyse", "compare", "contrast", "differentiate between", "examine"}},
	{BloomsApply, []string{"calculate", "compute", "solve", "find", "determine", "apply", "what is the value"}},
	{BloomsUnderstand, []string{"explain", "describe", "summarize", "why", "interpret", "classify"}},
	{BloomsRemember, []string{"define", "list", "name", "state", "identify", "what is", "who", "when"}},
}

// Topics returns the built-in topic taxonomy.
func Topics() []Topic {
	return seedTopics
}

// classifyTopic returns the best-scoring topic and subtopic for text, or
// empty strings when nothing matches.
func classifyTopic(text string) (topic, subtopic string) {
	lower := strings.ToLower(text)
	best := 0
	for _, t := range seedTopics {
		score := countHits(lower, t.Keywords)
		var sub string
		subBest := 0
		for _, s := range t.Subtopics {
			if n := countHits(lower, s.Keywords); n > subBest {
				sub, subBest = s.Name, n
			}
		}
		score += subBest
		if score > best {
			best, topic, subtopic = score, t.Name, sub
		}
	}
	return topic, subtopic
}

func classifyBlooms(text string) string {
	lower := strings.ToLower(text)
	for _, b := range bloomsVerbs {
		for _, v := range b.verbs {
			if containsWord(lower, v) {
				return b.level
			}
		}
	}
	return BloomsRemember
}

func countHits(lower string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			n++
		}
	}
	return n
}

// containsWord reports whether phrase occurs in s on word boundaries.
func containsWord(s, phrase string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], phrase)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(phrase)
		if (start == 0 || !isLetter(s[start-1])) && (end == len(s) || !isLetter(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
