package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignSessionID はセッションIDにHMAC-SHA256署名を付与したCookie値を生成する。
// 形式は「<sessionID>.<base64url(signature)>」。
// サーバー側ストアの鍵になるIDが偽造されていないことをCookie単体で検証できる。
func SignSessionID(sessionID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sessionID))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return sessionID + "." + sig
}

// VerifySessionID はCookie値の署名を検証し、セッションIDを取り出す。
// 署名が一致しない場合や形式が不正な場合はfalseを返す。
func VerifySessionID(cookieValue, secret string) (string, bool) {
	idx := strings.LastIndexByte(cookieValue, '.')
	if idx <= 0 || idx == len(cookieValue)-1 {
		return "", false
	}
	sessionID := cookieValue[:idx]
	gotSig, err := base64.RawURLEncoding.DecodeString(cookieValue[idx+1:])
	if err != nil {
		return "", false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sessionID))
	wantSig := mac.Sum(nil)

	if !hmac.Equal(gotSig, wantSig) {
		return "", false
	}
	return sessionID, true
}
