// Package template renders customer-facing notification messages from a
// fixed set of named tokens. Missing variables substitute channel-appropriate
// defaults; rendering never fails.
package template

import (
	"strings"

	"github.com/Nexus6Mx/see/internal/domain"
)

// Default message templates. Tokens use the {name} form inherited from the
// workshop's original notification copy; unknown tokens are left verbatim.
const (
	messageTemplate = "¡Hola {cliente_nombre}!\n\n" +
		"Las evidencias del servicio de su vehículo *{vehiculo_modelo}* (Orden #{orden_numero}) están listas.\n\n" +
		"Puede verlas aquí: {galeria_url}\n\n" +
		"Este enlace estará disponible por 30 días.\n\n" +
		"Gracias por confiar en nosotros.\n*ERR Automotriz*"

	emailSubjectTemplate = "Evidencias de su servicio - Orden #{orden_numero}"

	emailBodyTemplate = `<p>Estimado/a {cliente_nombre},</p>` +
		`<p>Las evidencias fotográficas y de video del servicio realizado a su vehículo ` +
		`<strong>{vehiculo_modelo}</strong> (Orden #{orden_numero}) están disponibles.</p>` +
		`<p><a href="{galeria_url}" style="background-color:#007bff;color:white;padding:10px 20px;` +
		`text-decoration:none;border-radius:5px;display:inline-block;">Ver Evidencias</a></p>` +
		`<p>Este enlace estará disponible por 30 días.</p>` +
		`<p>Gracias por confiar en ERR Automotriz.</p>`
)

// Fallbacks for missing variables.
const (
	defaultClientName   = "Cliente"
	defaultVehicleModel = "su vehículo"
)

// Vars holds the template variables assembled from the bridge lookup and the
// gallery link.
type Vars struct {
	ClientName   string
	VehicleModel string
	OrderNumber  string
	GalleryURL   string
}

// Message is a rendered notification. Chat channels use Body only; email
// additionally carries Subject and HTMLBody, templated independently.
type Message struct {
	Body     string
	Subject  string
	HTMLBody string
}

// Render fills the channel template for the given variables.
func Render(channel domain.Channel, vars Vars) Message {
	replacer := newReplacer(vars)

	if channel == domain.ChannelEmail {
		html := replacer.Replace(emailBodyTemplate)
		return Message{
			Body:     html,
			Subject:  replacer.Replace(emailSubjectTemplate),
			HTMLBody: html,
		}
	}

	return Message{Body: replacer.Replace(messageTemplate)}
}

func newReplacer(vars Vars) *strings.Replacer {
	name := strings.TrimSpace(vars.ClientName)
	if name == "" {
		name = defaultClientName
	}
	model := strings.TrimSpace(vars.VehicleModel)
	if model == "" {
		model = defaultVehicleModel
	}

	return strings.NewReplacer(
		"{cliente_nombre}", name,
		"{vehiculo_modelo}", model,
		"{orden_numero}", vars.OrderNumber,
		"{galeria_url}", vars.GalleryURL,
	)
}
