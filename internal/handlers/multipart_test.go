package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/baotiao/zeppelin-gateway-go/internal/namelist"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
	"github.com/baotiao/zeppelin-gateway-go/internal/storetest"
)

func newCall(method, path string, body *strings.Reader, st store.Store, bucket, object string, bucketsNL, objectsNL *namelist.Namelist) (*Call, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	return &Call{
		W: w, R: req, St: st, User: &store.User{Info: store.UserInfo{DisplayName: "alice"}},
		Bucket: bucket, Object: object, BucketsNL: bucketsNL, ObjectsNL: objectsNL,
	}, w
}

var _ = Describe("multipart upload state machine", func() {
	var (
		st        store.Store
		bucketsNL *namelist.Namelist
		objectsNL *namelist.Namelist
	)

	BeforeEach(func() {
		st = storetest.New()
		bucketsNL = namelist.New()
		bucketsNL.Insert("b1")
		objectsNL = namelist.New()
	})

	It("moves absent -> initiated -> completed and serves the composed object", func() {
		initCall, initW := newCall(http.MethodPost, "/b1/big?uploads", nil, st, "b1", "big", bucketsNL, objectsNL)
		initCall.InitiateMultipartUpload()
		Expect(initW.Code).To(Equal(http.StatusOK))
		Expect(initW.Body.String()).To(ContainSubstring("UploadId"))

		uploadID := extractUploadID(initW.Body.String())
		Expect(uploadID).NotTo(BeEmpty())

		shadow := shadowName("big", uploadID)
		Expect(objectsNL.IsExist(shadow)).To(BeTrue())

		body1 := strings.NewReader("AAA")
		partCall, partW := newCall(http.MethodPut, "/b1/big?partNumber=1&uploadId="+uploadID, body1, st, "b1", "big", bucketsNL, objectsNL)
		partCall.UploadPart("1", uploadID)
		Expect(partW.Code).To(Equal(http.StatusOK))
		Expect(partW.Header().Get("ETag")).NotTo(BeEmpty())

		completeCall, completeW := newCall(http.MethodPost, "/b1/big?uploadId="+uploadID, nil, st, "b1", "big", bucketsNL, objectsNL)
		completeCall.CompleteMultipartUpload(uploadID)
		Expect(completeW.Code).To(Equal(http.StatusOK))
		Expect(objectsNL.IsExist("big")).To(BeTrue())
		Expect(objectsNL.IsExist(shadow)).To(BeFalse())

		getCall, getW := newCall(http.MethodGet, "/b1/big", nil, st, "b1", "big", bucketsNL, objectsNL)
		getCall.GetObject(false)
		Expect(getW.Code).To(Equal(http.StatusOK))
		Expect(getW.Body.String()).To(Equal("AAA"))
	})

	It("moves absent -> initiated -> aborted, removing the shadow without creating a final object", func() {
		initCall, initW := newCall(http.MethodPost, "/b1/doc?uploads", nil, st, "b1", "doc", bucketsNL, objectsNL)
		initCall.InitiateMultipartUpload()
		uploadID := extractUploadID(initW.Body.String())

		abortCall, abortW := newCall(http.MethodDelete, "/b1/doc?uploadId="+uploadID, nil, st, "b1", "doc", bucketsNL, objectsNL)
		abortCall.AbortMultipartUpload(uploadID)
		Expect(abortW.Code).To(Equal(http.StatusNoContent))
		Expect(objectsNL.IsExist(shadowName("doc", uploadID))).To(BeFalse())
		Expect(objectsNL.IsExist("doc")).To(BeFalse())
	})

	It("rejects any operation against an absent upload_id with 404 NoSuchUpload", func() {
		deleteCall, deleteW := newCall(http.MethodDelete, "/b1/doc?uploadId=deadbeef", nil, st, "b1", "doc", bucketsNL, objectsNL)
		deleteCall.AbortMultipartUpload("deadbeef")
		Expect(deleteW.Code).To(Equal(http.StatusNotFound))
		Expect(deleteW.Body.String()).To(ContainSubstring("NoSuchUpload"))
	})

	It("rejects a duplicate upload_id instead of silently overwriting the shadow record", func() {
		id := uploadID("dup")
		shadow := shadowName("dup", id)
		objectsNL.Insert(shadow)
		Expect(st.AddObject("b1", shadow, store.ObjectInfo{}, nil)).To(Succeed())

		initCall, initW := newCall(http.MethodPost, "/b1/dup?uploads", nil, st, "b1", "dup", bucketsNL, objectsNL)
		initCall.InitiateMultipartUpload()
		Expect(initW.Code).To(Equal(http.StatusInternalServerError))
	})

	It("lists in-progress uploads parsed back out of shadow names", func() {
		initCall, initW := newCall(http.MethodPost, "/b1/report?uploads", nil, st, "b1", "report", bucketsNL, objectsNL)
		initCall.InitiateMultipartUpload()
		uploadID := extractUploadID(initW.Body.String())

		listCall, listW := newCall(http.MethodGet, "/b1?uploads", nil, st, "b1", "", bucketsNL, objectsNL)
		listCall.ListMultipartUploads()
		Expect(listW.Code).To(Equal(http.StatusOK))
		Expect(listW.Body.String()).To(ContainSubstring("report"))
		Expect(listW.Body.String()).To(ContainSubstring(uploadID))
	})
})

func extractUploadID(xmlBody string) string {
	const open, close = "<UploadId>", "</UploadId>"
	start := strings.Index(xmlBody, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	end := strings.Index(xmlBody[start:], close)
	if end < 0 {
		return ""
	}
	return xmlBody[start : start+end]
}
