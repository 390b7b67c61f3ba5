package store

import (
	"strings"

	"github.com/tasteapp/taste-index/internal/domain"
)

// Key layout.
//
//	post:{postID}                                    -> Post
//	like:{postID}:{liker}                            -> Like
//	acct:{address}                                   -> Account
//	event:{eventKey}                                 -> processedEvent
//	idx:posts:all:{invertedTs}:{eventKey}            -> postID
//	idx:posts:category:{cat}:{invertedTs}:{eventKey} -> postID
//	idx:posts:creator:{addr}:{invertedTs}:{eventKey} -> postID
//	idx:accounts:earned:{invertedAmount}:{address}   -> lastActive
//	meta:checkpoint:{name}                           -> EventID
const (
	postPrefix    = "post:"
	likePrefix    = "like:"
	accountPrefix = "acct:"
	eventPrefix   = "event:"

	postsAllIdxPrefix       = "idx:posts:all:"
	postsCategoryIdxPrefix  = "idx:posts:category:"
	postsCreatorIdxPrefix   = "idx:posts:creator:"
	accountsEarnedIdxPrefix = "idx:accounts:earned:"

	checkpointPrefix = "meta:checkpoint:"
)

// buildKey concatenates key parts.
func buildKey(parts ...string) []byte {
	return []byte(strings.Join(parts, ""))
}

func postKey(postID string) []byte {
	return buildKey(postPrefix, postID)
}

func likeKey(postID, liker string) []byte {
	return buildKey(likePrefix, postID, ":", liker)
}

func likesForPostPrefix(postID string) []byte {
	return buildKey(likePrefix, postID, ":")
}

func accountKey(address string) []byte {
	return buildKey(accountPrefix, address)
}

func eventKey(id domain.EventID) []byte {
	return buildKey(eventPrefix, id.Key())
}

func categoryIdxPrefix(c domain.Category) string {
	return postsCategoryIdxPrefix + string(c) + ":"
}

func creatorIdxPrefix(address string) string {
	return postsCreatorIdxPrefix + address + ":"
}

func earnedIdxKey(acct *domain.Account) []byte {
	return buildKey(accountsEarnedIdxPrefix, acct.TotalEarned.Inverted(), ":", acct.Address)
}

func checkpointKey(name string) []byte {
	return buildKey(checkpointPrefix, name)
}
