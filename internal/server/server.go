package server

// Server combines the entity-specific HTTP servers into one route surface.
type Server struct {
	ScoreServer
	ReportServer
	GeocodeServer
}

func NewServer(
	scoreServer ScoreServer,
	reportServer ReportServer,
	geocodeServer GeocodeServer,
) Server {
	return Server{
		ScoreServer:   scoreServer,
		ReportServer:  reportServer,
		GeocodeServer: geocodeServer,
	}
}
