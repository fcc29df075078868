// Package application provides application initialization and dependency wiring.
// It opens the box catalog and result cache backends selected by configuration,
// builds the packing service client, the estimator, handlers, routers and the
// HTTP server, and releases the backends on Close. This keeps the main package
// focused on CLI parsing and orchestration.
package application
