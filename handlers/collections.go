package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/andrewpaige1/flashcardhero-api/collectionsync"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
	"github.com/andrewpaige1/flashcardhero-api/utils"
	"github.com/andrewpaige1/flashcardhero-api/validation"
)

// GET /api/collections/{collectionID}
func (db *DBHandler) GetCollectionByID(w http.ResponseWriter, r *http.Request) {
	collectionID := r.PathValue("collectionID")
	c, err := db.Collections.Get(r.Context(), collectionID)
	if err != nil {
		writeError(w, "GetCollectionByID", err)
		return
	}

	auth0ID, _ := utils.GetAuth0ID(r)
	if !c.IsPublic() && c.OwnerID != auth0ID {
		log.Printf("GetCollectionByID: forbidden id=%s caller=%s", collectionID, auth0ID)
		http.Error(w, "This collection is private", http.StatusForbidden)
		return
	}
	utils.WriteJSON(w, http.StatusOK, c)
}

// POST /api/collections
func (db *DBHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	auth0ID, ok := utils.GetAuth0ID(r)
	if !ok {
		log.Printf("CreateCollection: Unauthorized request")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var in models.CollectionInput
	if err := db.decode(r, &in); err != nil {
		log.Printf("CreateCollection: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateInput(in); err != nil {
		writeError(w, "CreateCollection", err)
		return
	}

	id, err := db.Collections.Create(r.Context(), auth0ID, in)
	if err != nil {
		writeError(w, "CreateCollection", err)
		return
	}

	log.Printf("CreateCollection: created collection id=%s owner=%s", id, auth0ID)
	utils.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// PUT /api/collections/{collectionID}
func (db *DBHandler) UpdateCollectionByID(w http.ResponseWriter, r *http.Request) {
	collectionID := r.PathValue("collectionID")
	if _, ok := db.authorizeOwner(w, r, "UpdateCollectionByID", collectionID); !ok {
		return
	}

	var patch models.CollectionPatch
	if err := db.decode(r, &patch); err != nil {
		log.Printf("UpdateCollectionByID: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}
	if err := validation.Validate(patch); err != nil {
		writeError(w, "UpdateCollectionByID", err)
		return
	}

	if err := db.Collections.Update(r.Context(), collectionID, patch); err != nil {
		writeError(w, "UpdateCollectionByID", err)
		return
	}
	log.Printf("UpdateCollectionByID: updated id=%s", collectionID)
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/collections/{collectionID}
func (db *DBHandler) DeleteCollectionByID(w http.ResponseWriter, r *http.Request) {
	collectionID := r.PathValue("collectionID")
	if _, ok := db.authorizeOwner(w, r, "DeleteCollectionByID", collectionID); !ok {
		return
	}

	if err := db.Collections.Delete(r.Context(), collectionID); err != nil {
		writeError(w, "DeleteCollectionByID", err)
		return
	}
	log.Printf("DeleteCollectionByID: Successfully deleted id=%s", collectionID)
	w.WriteHeader(http.StatusNoContent)
}

// authorizeOwner checks that the caller owns collectionID and writes the
// failure response otherwise.
func (db *DBHandler) authorizeOwner(w http.ResponseWriter, r *http.Request, op, collectionID string) (*models.Collection, bool) {
	auth0ID, ok := utils.GetAuth0ID(r)
	if !ok {
		log.Printf("%s: Unauthorized request", op)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	c, err := db.Collections.Get(r.Context(), collectionID)
	if err != nil {
		writeError(w, op, err)
		return nil, false
	}
	if c.OwnerID != auth0ID {
		log.Printf("%s: forbidden id=%s caller=%s", op, collectionID, auth0ID)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return c, true
}

// GET /api/collections/mine
func (db *DBHandler) GetMyCollections(w http.ResponseWriter, r *http.Request) {
	auth0ID, ok := utils.GetAuth0ID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := db.Collections.List(r.Context(), store.ByOwner(auth0ID))
	if err != nil {
		writeError(w, "GetMyCollections", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, nonNil(list))
}

// GET /api/collections/public?sample=N&q=text
//
// Without sample the whole public catalogue is returned, newest first.
// With sample a random subset of at most 12 is drawn after searching.
func (db *DBHandler) GetPublicCollections(w http.ResponseWriter, r *http.Request) {
	sample := 0
	if v := r.URL.Query().Get("sample"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			err = db.validate.Var(n, "gte=0")
		}
		if err != nil {
			http.Error(w, "sample must be a non-negative integer", http.StatusBadRequest)
			return
		}
		sample = min(n, collectionsync.DefaultSampleSize)
	}

	list, err := db.Collections.List(r.Context(), store.Public())
	if err != nil {
		writeError(w, "GetPublicCollections", err)
		return
	}
	list = collectionsync.Search(list, r.URL.Query().Get("q"))
	if sample > 0 {
		list = collectionsync.NewSampler(sample).Apply(list)
	}
	utils.WriteJSON(w, http.StatusOK, nonNil(list))
}

// GET /api/users/{nickname}/collections
func (db *DBHandler) GetCollectionsForUser(w http.ResponseWriter, r *http.Request) {
	nickname := r.PathValue("nickname")
	if nickname == "" {
		http.Error(w, "Nickname is required", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := db.Where("nickname = ?", nickname).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("GetCollectionsForUser: User not found for nickname=%s", nickname)
			http.Error(w, fmt.Sprintf("User not found for nickname=%s", nickname), http.StatusNotFound)
			return
		}
		writeError(w, "GetCollectionsForUser", err)
		return
	}

	filter := store.ByOwner(user.Auth0ID)
	if auth0ID, ok := utils.GetAuth0ID(r); !ok || auth0ID != user.Auth0ID {
		filter.Visibility = models.VisibilityPublic
	}

	list, err := db.Collections.List(r.Context(), filter)
	if err != nil {
		writeError(w, "GetCollectionsForUser", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, nonNil(list))
}

func nonNil(list []models.Collection) []models.Collection {
	if list == nil {
		return []models.Collection{}
	}
	return list
}
