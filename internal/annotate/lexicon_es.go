package annotate

import "github.com/felixgeelhaar/comprende/internal/domain"

// cliticDeps maps weak pronouns to the relation they take before a verb.
// "se" is tagged as the reflexive/pronominal marker.
var cliticDeps = map[string]domain.DepLabel{
	"me":  domain.DepDirectObject,
	"te":  domain.DepDirectObject,
	"se":  domain.DepExpletive,
	"nos": domain.DepDirectObject,
	"os":  domain.DepDirectObject,
	"lo":  domain.DepDirectObject,
	"la":  domain.DepDirectObject,
	"los": domain.DepDirectObject,
	"las": domain.DepDirectObject,
	"le":  domain.DepIndirectObject,
	"les": domain.DepIndirectObject,
}

const (
	subjImp  = "Mood=Sub|Tense=Imp"
	subjPres = "Mood=Sub|Tense=Pres"
	indPast  = "Mood=Ind|Tense=Past"
	indPres  = "Mood=Ind|Tense=Pres"
	indImp   = "Mood=Ind|Tense=Imp"
	cond     = "Mood=Cnd"
)

func words(pos domain.POS, morph string, forms ...string) map[string]entry {
	out := make(map[string]entry, len(forms))
	for _, f := range forms {
		out[f] = entry{POS: pos, Morph: morph}
	}
	return out
}

var builtinEntries = func() map[string]entry {
	all := make(map[string]entry)
	add := func(m map[string]entry) {
		for k, v := range m {
			all[k] = v
		}
	}

	add(words(domain.POSAdp, "",
		"a", "al", "ante", "bajo", "con", "contra", "de", "del", "desde",
		"durante", "en", "entre", "hacia", "hasta", "mediante", "para",
		"por", "según", "sin", "sobre", "tras",
	))
	add(words(domain.POSDet, "",
		"el", "la", "los", "las", "un", "una", "unos", "unas",
		"este", "esta", "estos", "estas", "ese", "esa", "esos", "esas",
		"aquel", "aquella", "aquellos", "aquellas",
		"mi", "mis", "tu", "tus", "su", "sus",
		"nuestro", "nuestra", "nuestros", "nuestras",
		"cada", "otro", "otra", "otros", "otras", "todo", "toda", "todos", "todas",
		"mucho", "mucha", "muchos", "muchas", "poco", "poca", "pocos", "pocas",
		"algún", "alguna", "algunos", "algunas", "ningún", "ninguna",
	))
	add(words(domain.POSPron, "PronType=Prs",
		"yo", "tú", "él", "ella", "ello", "nosotros", "nosotras",
		"vosotros", "vosotras", "ellos", "ellas", "usted", "ustedes",
		"mí", "ti", "conmigo", "contigo",
	))
	add(words(domain.POSPron, "PronType=Ind",
		"algo", "nada", "alguien", "nadie", "esto", "eso", "aquello",
	))
	add(words(domain.POSPron, "PronType=Rel",
		"quien", "quienes", "cual", "cuales",
	))
	add(words(domain.POSSConj, "",
		"que", "si", "porque", "aunque", "cuando", "como", "mientras",
		"pues", "donde",
	))
	add(words(domain.POSCConj, "",
		"y", "e", "o", "u", "pero", "ni", "sino", "mas",
	))
	add(words(domain.POSAdv, "",
		"no", "sí", "muy", "ya", "también", "tampoco", "siempre", "nunca",
		"jamás", "aquí", "allí", "ahí", "allá", "hoy", "ayer", "bien", "mal",
		"más", "menos", "tan", "tanto", "todavía", "aún", "casi", "solo",
		"ahora", "luego", "después", "antes", "entonces", "así",
	))
	add(words(domain.POSIntj, "",
		"ah", "oh", "eh", "bueno", "vale", "hola", "ay",
	))

	// haber and copulas
	add(words(domain.POSAux, indPres,
		"he", "has", "ha", "hemos", "han", "es", "son", "soy", "eres", "somos",
		"está", "están", "estoy", "estás", "estamos",
	))
	add(words(domain.POSAux, indImp,
		"había", "habías", "habíamos", "habían", "era", "eras", "éramos",
		"eran", "estaba", "estaban",
	))
	add(words(domain.POSAux, indPast, "fueron", "estuvo", "estuvieron"))
	add(words(domain.POSAux, subjPres, "haya", "hayas", "hayamos", "hayan", "sea", "seas", "sean", "esté", "estén"))
	add(words(domain.POSAux, subjImp, "hubiera", "hubieras", "hubieran", "fuera", "fueras", "fueran"))

	// irregular lexical verbs the suffix rules miss
	add(words(domain.POSVerb, indPres,
		"hay", "tengo", "tienes", "tiene", "tienen", "tenemos", "quiero",
		"quieres", "quiere", "quieren", "puedo", "puedes", "puede", "pueden",
		"voy", "vas", "va", "vamos", "van", "hago", "haces", "hace", "hacen",
		"digo", "dices", "dice", "dicen", "sé", "sabe", "saben", "veo", "ve",
		"ven", "doy", "da", "dan", "pienso", "piensa", "creo", "cree",
	))
	add(words(domain.POSVerb, indPast,
		"fui", "fue", "tuve", "tuvo", "tuvimos", "tuvieron", "hice", "hizo",
		"hicieron", "dije", "dijo", "dijeron", "pude", "pudo", "vi", "vio",
		"di", "dio", "supe", "supo", "quise", "quiso", "vine", "vino",
	))
	add(words(domain.POSVerb, subjPres,
		"tenga", "tengas", "tengan", "pueda", "puedas", "puedan", "quiera",
		"quieras", "quieran", "vaya", "vayas", "vayan", "haga", "hagas",
		"hagan", "diga", "digas", "digan", "sepa", "venga", "vengan",
	))
	add(words(domain.POSVerb, subjImp,
		"tuviera", "tuvieras", "tuviéramos", "tuvieran", "tuviese",
		"pudiera", "pudieras", "pudieran", "quisiera", "quisieras",
		"hiciera", "hicieras", "dijera", "supiera", "viniera",
	))
	add(words(domain.POSVerb, cond,
		"iría", "irías", "iríamos", "irían", "tendría", "podría", "haría",
		"diría", "querría", "sabría",
	))

	// weak pronouns; la/los/las stay articles unless a verb follows
	for w, dep := range cliticDeps {
		if _, isDet := all[w]; isDet {
			continue
		}
		all[w] = entry{POS: domain.POSPron, Morph: "PronType=Prs", Dep: dep}
	}
	return all
}()
