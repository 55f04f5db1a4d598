package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	v1 := s.router.Group("/api/v1")

	v1.POST("/payments", s.executePayment)
	v1.POST("/payments/prepare", s.preparePayment)
	v1.POST("/payments/:payment_id/submit", s.submitPayment)
	v1.GET("/payments", s.listPayments)
	v1.GET("/payments/:payment_id", s.getPayment)

	v1.POST("/verify/:tx_signature", s.verifyPayment)

	v1.POST("/services", s.createService)
	v1.GET("/services", s.listServices)
	v1.GET("/services/:service_id", s.getService)

	v1.GET("/health", s.healthCheck)
}
