package llm

import "context"

// Turn es un mensaje del historial que se envía al modelo. La imagen es
// opcional y viaja opaca: el servicio no la inspecciona.
type Turn struct {
	Role      string
	Content   string
	ImageData []byte
	ImageMIME string
}

// Provider define la interfaz para generar la respuesta del asistente a
// partir del historial ordenado de la conversación.
type Provider interface {
	Reply(ctx context.Context, turns []Turn) (string, error)
}
