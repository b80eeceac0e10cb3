//go:build component
// +build component

package component

func (s *ComponentTestSuite) TestCreateUser() {
	_, when, then := s.gherkin()

	when().
		aUserCreatedEventIsDelivered()

	then().
		theCreateResponseContainsTheSyncedUser().
		theStoreContainsTheUser().
		anEventForTheUserCreationWillEventuallyBeProduced()
}

func (s *ComponentTestSuite) TestUpdateUser() {
	given, when, then := s.gherkin()

	given().
		anExistingUser()

	when().
		aUserUpdatedEventIsDelivered()

	then().
		theUpdateResponseKeepsTheEmail().
		theStoreContainsTheUser().
		anEventForTheUserUpdateWillEventuallyBeProduced()
}

func (s *ComponentTestSuite) TestDeleteUser() {
	given, when, then := s.gherkin()

	given().
		anExistingUser()

	when().
		aUserDeletedEventIsDelivered()

	then().
		theDeleteIsAcknowledged().
		theStoreDoesNotContainALiveUser().
		anEventForTheUserDeletionWillEventuallyBeProduced().
		aSecondDeletionFails()
}
