package handlers

import "net/http"

// Routes registers the API on mux. syncUser wraps handlers that need the
// caller stored as a user.
func (db *DBHandler) Routes(mux *http.ServeMux, syncUser func(http.HandlerFunc) http.HandlerFunc) {
	// Collections
	mux.HandleFunc("GET /api/collections/public", db.GetPublicCollections)
	mux.HandleFunc("GET /api/collections/mine", db.GetMyCollections)
	mux.HandleFunc("GET /api/collections/{collectionID}", db.GetCollectionByID)
	mux.HandleFunc("POST /api/collections", syncUser(db.CreateCollection))
	mux.HandleFunc("PUT /api/collections/{collectionID}", syncUser(db.UpdateCollectionByID))
	mux.HandleFunc("DELETE /api/collections/{collectionID}", syncUser(db.DeleteCollectionByID))

	// User collections
	mux.HandleFunc("GET /api/users/{nickname}/collections", db.GetCollectionsForUser)

	// Live
	mux.HandleFunc("GET /api/ws/collections/mine", db.WatchMyCollections)
	mux.HandleFunc("GET /api/ws/collections/public", db.WatchPublicCollections)
	mux.HandleFunc("GET /api/ws/collections/{collectionID}", db.WatchCollection)

	// Generation
	mux.HandleFunc("POST /api/generate", syncUser(db.GenerateFlashcards))
	mux.HandleFunc("POST /api/improve", syncUser(db.ImproveFlashcard))

	if db.Issuer != nil {
		mux.HandleFunc("POST /api/dev/login", db.DevLogin)
	}
}
