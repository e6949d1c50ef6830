package graphql

// Schema is the GraphQL schema served on /graphql.
const Schema = `
"Any JSON value. Rate requests are passed through unchanged and validated by the carrier."
scalar JSON

type RateQuote {
  carrier: String!
  serviceLevel: String!
  amount: Float!
  currency: String!
  estimatedDeliveryDays: Int
}

type Query {
  health: String!
  carriers: [String!]!
}

type Mutation {
  "Quotes a rate request with one carrier, ups when carrier is omitted."
  getRates(carrier: String, request: JSON!): [RateQuote!]
}
`
