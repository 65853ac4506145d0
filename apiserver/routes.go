package apiserver

// registerRoutes wires every API endpoint to its handler.
func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/v1").Subrouter()

	// Health
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	// Stateless turns
	api.HandleFunc("/turns", s.handleTurn).Methods("POST")

	// Sessions
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/turns", s.handleSessionTurn).Methods("POST")

	// Catalog; the search route speaks the catalog.RemoteResolver protocol.
	api.HandleFunc("/tools/search", s.handleSearchTools).Methods("GET")
	api.HandleFunc("/tools/base", s.handleBaseTools).Methods("GET")
	api.HandleFunc("/tools", s.handleListTools).Methods("GET")
	api.HandleFunc("/tools", s.handleRegisterTools).Methods("POST")
	api.HandleFunc("/tools/{name}", s.handleDeleteTool).Methods("DELETE")
}
