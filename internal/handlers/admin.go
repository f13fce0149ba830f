package handlers

import (
	"fmt"
	"net/http"

	"github.com/golang/glog"

	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

// AdminListUsers implements spec §4.8: dump every registered user as
// display_name followed by each access_key/secret_key pair, with a blank
// line between users, as a plaintext body.
func AdminListUsers(w http.ResponseWriter, st store.Store) {
	users, err := st.ListUsers()
	if err != nil {
		glog.Errorf("AdminListUsers: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%v", err)
		return
	}
	setCommonHeaders(w)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	for i, u := range users {
		if i > 0 {
			fmt.Fprint(w, "\r\n")
		}
		fmt.Fprintf(w, "%s\r\n", u.Info.DisplayName)
		for accessKey, secretKey := range u.Keys {
			fmt.Fprintf(w, "%s\r\n%s\r\n", accessKey, secretKey)
		}
	}
}

// AdminPutUser implements spec §4.8: register displayName and reply with
// its minted access_key and secret_key, CRLF-separated, as plaintext.
func AdminPutUser(w http.ResponseWriter, displayName string, st store.Store) {
	accessKey, secretKey, err := st.AddUser(displayName)
	if err != nil {
		glog.Errorf("AdminPutUser %s: %v", displayName, err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%v", err)
		return
	}
	setCommonHeaders(w)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s\r\n%s", accessKey, secretKey)
}
