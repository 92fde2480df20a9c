// Package voicegate provides a Go client for the voicegate realtime voice
// relay: ephemeral session issuing, knowledge base search, search
// statistics and the emotion heuristic.
//
//	client, _ := voicegate.New("http://localhost:3000",
//	    voicegate.WithTimeout(20*time.Second),
//	)
//	sess, _ := client.CreateSession(ctx)
//	fmt.Println(sess.ClientSecret.Value)
//
//	hits, _ := client.Search(ctx, "ターン検出", 3)
//	for _, h := range hits.Results {
//	    fmt.Println(h.Score, h.Title, h.URL)
//	}
//
// Errors returned for non-2xx responses are *APIError values that match
// the exported sentinels with errors.Is.
package voicegate
