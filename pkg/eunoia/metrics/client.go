package metrics

// Metric names recorded by the eunoia client.
const (
	HTTPServiceResponse = "app_http_service_response"
	SessionRefreshTotal = "eunoia_session_refresh_total"
	ForcedLogoutTotal   = "eunoia_forced_logout_total"
	ErrorsTotal         = "eunoia_errors_total"
	JournalRequestTotal = "eunoia_journal_requests_total"
)

// RegisterClient registers every metric the client records on m.
func RegisterClient(m Manager) {
	m.NewHistogram(HTTPServiceResponse, "Response time of HTTP service requests in seconds.",
		.001, .003, .005, .01, .02, .03, .05, .1, .2, .3, .5, .75, 1, 2, 3, 5, 10, 30)
	m.NewCounter(SessionRefreshTotal, "Session refresh attempts by trigger (proactive, reactive, poll) and outcome.")
	m.NewCounter(ForcedLogoutTotal, "Number of times the client cleared the session after an unrecoverable 401.")
	m.NewCounter(ErrorsTotal, "Classified errors by code and severity.")
	m.NewCounter(JournalRequestTotal, "Journal API operations by operation and outcome.")
}
