package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"agenda_scrooper/models"
)

type categoryKeywords struct {
	id       models.CategoryID
	keywords []string
}

// categoryTable is scanned in order; the first category with a matching
// keyword wins.
var categoryTable = []categoryKeywords{
	{models.CategoryMusic, []string{"música", "musica", "concierto", "banda", "dj", "recital", "festival", "rock", "pop", "jazz", "electrónica", "rap", "trap"}},
	{models.CategoryCinema, []string{"cine", "película", "film", "documental", "proyección", "cortometraje", "largometraje"}},
	{models.CategoryArts, []string{"arte", "pintura", "escultura", "exposición", "galería", "literatura", "teatro", "poesía", "dramaturgia", "artista", "dibujo", "obra"}},
	{models.CategoryMuseum, []string{"museo", "historia", "arqueología", "cultura", "colección", "visita museo"}},
	{models.CategoryActivities, []string{"actividades", "visita guiada", "ruta", "tour", "paseo", "charla", "encuentro", "jornada", "evento", "experiencia", "evento especial"}},
	{models.CategoryWorkshop, []string{"taller", "workshop", "clase", "curso", "formación", "aprendizaje", "seminario", "manualidades"}},
	{models.CategoryDance, []string{"baile", "danza", "clase de baile", "coreografía", "salsa", "tango", "folklore", "bailar"}},
	{models.CategoryKids, []string{"niños", "infantil", "familia", "cuentos", "juegos", "títeres", "payasos", "taller infantil", "actividad para niños"}},
	{models.CategoryFoodDrinks, []string{"comida", "gastronomía", "bebidas", "vino", "degustación", "cata", "cerveza", "café", "foodtruck", "tapas"}},
	{models.CategoryNightlife, []string{"fiesta", "discoteca", "bar", "pub", "copas", "noche", "after", "nocturno", "club", "dj set"}},
	{models.CategoryServices, []string{"servicio", "reparación", "soporte", "asesoría", "técnico", "profesional", "consultoría"}},
}

// DefaultCategory is returned when no keyword matches.
const DefaultCategory = models.CategoryActivities

// Classify maps free text (usually an event title) to a category id.
func Classify(text string) models.CategoryID {
	// Casers keep state, so each call gets its own.
	txt := cases.Lower(language.Spanish).String(text)
	for _, entry := range categoryTable {
		for _, kw := range entry.keywords {
			if strings.Contains(txt, kw) {
				return entry.id
			}
		}
	}
	return DefaultCategory
}
